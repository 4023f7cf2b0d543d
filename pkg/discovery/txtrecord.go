package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeServerTXT creates the TXT records a push server advertises.
func EncodeServerTXT(info *ServerInfo) TXTRecordMap {
	txt := make(TXTRecordMap)
	if info.Path != "" && info.Path != DefaultPath {
		txt[TXTKeyPath] = info.Path
	}
	if info.TLS {
		txt[TXTKeyTLS] = "1"
	} else {
		txt[TXTKeyTLS] = "0"
	}
	version := info.Version
	if version == 0 {
		version = ProtocolVersion
	}
	txt[TXTKeyVersion] = strconv.Itoa(version)
	return txt
}

// DecodeServerTXT parses push server TXT records. Missing keys take defaults:
// path /ws, no TLS, version 1.
func DecodeServerTXT(txt TXTRecordMap) (*ServerInfo, error) {
	info := &ServerInfo{
		Path:    DefaultPath,
		Version: ProtocolVersion,
	}

	if p, ok := txt[TXTKeyPath]; ok && p != "" {
		info.Path = p
	}

	if v, ok := txt[TXTKeyTLS]; ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "":
			info.TLS = true
		case "0", "false", "no":
			info.TLS = false
		default:
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, TXTKeyTLS, v)
		}
	}

	if v, ok := txt[TXTKeyVersion]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, TXTKeyVersion, v)
		}
		info.Version = n
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
// A bare key is a boolean flag with an empty value.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		key, value, found := strings.Cut(s, "=")
		if key == "" {
			continue
		}
		if !found {
			value = ""
		}
		txt[strings.ToLower(key)] = value
	}
	return txt
}
