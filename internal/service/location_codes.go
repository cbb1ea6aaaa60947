package service

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// UnknownLocationCode 国家或省份名称无法识别时使用
const UnknownLocationCode = "XX"

var locationCodePattern = regexp.MustCompile(`^[A-Z]{2,3}$`)

var defaultCountryCodes = map[string]string{
	"India":                    "IN",
	"United States":            "US",
	"United States of America": "US",
	"USA":                      "US",
	"United Kingdom":           "GB",
	"UK":                       "GB",
	"Canada":                   "CA",
	"Australia":                "AU",
	"New Zealand":              "NZ",
	"United Arab Emirates":     "AE",
	"UAE":                      "AE",
	"Saudi Arabia":             "SA",
	"Qatar":                    "QA",
	"Oman":                     "OM",
	"Kuwait":                   "KW",
	"Bahrain":                  "BH",
	"Nepal":                    "NP",
	"Bangladesh":               "BD",
	"Sri Lanka":                "LK",
	"Bhutan":                   "BT",
	"Maldives":                 "MV",
	"Pakistan":                 "PK",
	"Singapore":                "SG",
	"Malaysia":                 "MY",
	"Germany":                  "DE",
	"France":                   "FR",
	"Ireland":                  "IE",
	"Netherlands":              "NL",
	"South Africa":             "ZA",
	"Kenya":                    "KE",
	"Nigeria":                  "NG",
}

var defaultStateCodes = map[string]string{
	// India: states
	"Andhra Pradesh":    "AP",
	"Arunachal Pradesh": "AR",
	"Assam":             "AS",
	"Bihar":             "BR",
	"Chhattisgarh":      "CG",
	"Goa":               "GA",
	"Gujarat":           "GJ",
	"Haryana":           "HR",
	"Himachal Pradesh":  "HP",
	"Jharkhand":         "JH",
	"Karnataka":         "KA",
	"Kerala":            "KL",
	"Madhya Pradesh":    "MP",
	"Maharashtra":       "MH",
	"Manipur":           "MN",
	"Meghalaya":         "ML",
	"Mizoram":           "MZ",
	"Nagaland":          "NL",
	"Odisha":            "OD",
	"Punjab":            "PB",
	"Rajasthan":         "RJ",
	"Sikkim":            "SK",
	"Tamil Nadu":        "TN",
	"Telangana":         "TS",
	"Tripura":           "TR",
	"Uttar Pradesh":     "UP",
	"Uttarakhand":       "UK",
	"West Bengal":       "WB",
	// India: union territories
	"Andaman and Nicobar Islands":              "AN",
	"Chandigarh":                               "CH",
	"Dadra and Nagar Haveli and Daman and Diu": "DNH",
	"Delhi":                                    "DL",
	"Jammu and Kashmir":                        "JK",
	"Ladakh":                                   "LA",
	"Lakshadweep":                              "LD",
	"Puducherry":                               "PY",
	// United States
	"California": "CA",
	"New York":   "NY",
	"Texas":      "TX",
	"Florida":    "FL",
	"Washington": "WA",
	"Illinois":   "IL",
	"New Jersey": "NJ",
	// Canada
	"Ontario":          "ON",
	"British Columbia": "BC",
	"Quebec":           "QC",
	"Alberta":          "AB",
	// United Kingdom
	"England":  "ENG",
	"Scotland": "SCT",
	"Wales":    "WLS",
	// Australia
	"New South Wales": "NSW",
	"Victoria":        "VIC",
	"Queensland":      "QLD",
}

// LocationCodes 国家/省份名称到编码的静态表，名称按大小写不敏感的精确匹配
type LocationCodes struct {
	mu        sync.RWMutex
	countries map[string]string
	states    map[string]string
}

func normalizeLocationName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func indexCodes(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for name, code := range src {
		out[normalizeLocationName(name)] = code
	}
	return out
}

func NewLocationCodes() *LocationCodes {
	return &LocationCodes{
		countries: indexCodes(defaultCountryCodes),
		states:    indexCodes(defaultStateCodes),
	}
}

func (l *LocationCodes) CountryCode(name string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if code, ok := l.countries[normalizeLocationName(name)]; ok {
		return code
	}
	return UnknownLocationCode
}

func (l *LocationCodes) StateCode(name string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if code, ok := l.states[normalizeLocationName(name)]; ok {
		return code
	}
	return UnknownLocationCode
}

// LocationOverrides 运维可通过 YAML 文件补充或覆盖编码
type LocationOverrides struct {
	Countries map[string]string `yaml:"countries"`
	States    map[string]string `yaml:"states"`
}

func validateCodes(kind string, codes map[string]string) error {
	for name, code := range codes {
		if !locationCodePattern.MatchString(code) {
			return fmt.Errorf("%s %q: code %q must be 2-3 uppercase letters", kind, name, code)
		}
	}
	return nil
}

// Apply 以默认表为基础合并覆盖项，校验失败时保持原表不变
func (l *LocationCodes) Apply(overrides LocationOverrides) error {
	if err := validateCodes("country", overrides.Countries); err != nil {
		return err
	}
	if err := validateCodes("state", overrides.States); err != nil {
		return err
	}

	countries := indexCodes(defaultCountryCodes)
	for name, code := range overrides.Countries {
		countries[normalizeLocationName(name)] = code
	}
	states := indexCodes(defaultStateCodes)
	for name, code := range overrides.States {
		states[normalizeLocationName(name)] = code
	}

	l.mu.Lock()
	l.countries = countries
	l.states = states
	l.mu.Unlock()
	return nil
}

// ReloadFile 读取 YAML 覆盖文件并应用；文件不存在时恢复默认表
func (l *LocationCodes) ReloadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l.Apply(LocationOverrides{})
	}
	if err != nil {
		return err
	}

	var overrides LocationOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return l.Apply(overrides)
}
