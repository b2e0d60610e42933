package credentials

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Kind describes where a credential document came from.
type Kind string

const (
	KindFile             Kind = "file"
	KindDirectory        Kind = "directory"
	KindInlineJSON       Kind = "inline-json"
	KindInlineBase64JSON Kind = "inline-base64-json"
)

// Setting names consulted by the resolver.
const (
	SettingCredentialsFile        = "FIREBASE_CREDENTIALS_FILE"
	SettingApplicationCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
	SettingLegacyCredentials      = "FIREBASE_CREDENTIALS"
	SettingCredentialsJSON        = "FIREBASE_CREDENTIALS_JSON"
	SettingServiceAccountJSON     = "FIREBASE_SERVICE_ACCOUNT_JSON"
	SettingGoogleCredentialsJSON  = "GOOGLE_CREDENTIALS_JSON"
	SettingCredentialsBase64      = "FIREBASE_CREDENTIALS_BASE64"
	settingDefault                = "default"
)

// DefaultPaths are tried, in order, when no explicit file setting resolves.
var DefaultPaths = []string{
	"/run/secrets/firebase_credentials.json",
	"/run/secrets/firebase",
	"/etc/secrets/firebase.json",
	"secrets/firebase.json",
	"firebase-credentials.json",
}

// Settings holds the raw values of every credential setting.
type Settings struct {
	CredentialsFile        string
	ApplicationCredentials string
	LegacyCredentials      string
	CredentialsJSON        string
	ServiceAccountJSON     string
	GoogleCredentialsJSON  string
	CredentialsBase64      string
}

// Source is a successfully resolved credential document.
type Source struct {
	Kind    Kind
	Setting string
	// Path is set for file and directory sources only.
	Path     string
	Document map[string]any
	Raw      []byte
}

// FileBased reports whether the document was read from disk.
func (s Source) FileBased() bool {
	return s.Kind == KindFile || s.Kind == KindDirectory
}

// Type returns the document's "type" field.
func (s Source) Type() string {
	t, _ := s.Document["type"].(string)
	return t
}

// ProjectID returns the document's "project_id" field, if any.
func (s Source) ProjectID() string {
	p, _ := s.Document["project_id"].(string)
	return p
}

// Resolver finds the first valid credential document across the configured tiers.
type Resolver struct {
	settings     Settings
	defaultPaths []string
	logger       *slog.Logger
}

// NewResolver returns a Resolver over settings probing DefaultPaths.
func NewResolver(settings Settings, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{settings: settings, defaultPaths: DefaultPaths, logger: logger}
}

// WithDefaultPaths replaces the default locations tried.
func (r *Resolver) WithDefaultPaths(paths []string) *Resolver {
	clone := *r
	clone.defaultPaths = append([]string(nil), paths...)
	return &clone
}

type inlineSetting struct {
	name  string
	value string
}

// Resolve walks the tiers in order and returns the first valid document.
// File-based tiers always win over inline tiers.
func (r *Resolver) Resolve() (Source, bool) {
	fileTiers := []struct {
		setting  string
		path     string
		allowDir bool
	}{
		{SettingCredentialsFile, r.settings.CredentialsFile, true},
		{SettingApplicationCredentials, r.settings.ApplicationCredentials, false},
		{SettingLegacyCredentials, r.settings.LegacyCredentials, true},
	}
	for _, tier := range fileTiers {
		path := strings.TrimSpace(tier.path)
		if path == "" {
			continue
		}
		if src, ok := r.fromPath(tier.setting, path, tier.allowDir); ok {
			return src, true
		}
	}

	for _, path := range r.defaultPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if src, ok := r.fromPath(settingDefault, path, true); ok {
			return src, true
		}
	}

	inline := []inlineSetting{
		{SettingCredentialsJSON, r.settings.CredentialsJSON},
		{SettingServiceAccountJSON, r.settings.ServiceAccountJSON},
		{SettingGoogleCredentialsJSON, r.settings.GoogleCredentialsJSON},
	}
	for _, s := range inline {
		value := strings.TrimSpace(s.value)
		if value == "" {
			continue
		}
		doc, err := parseDocument([]byte(value))
		if err != nil {
			// Not plain JSON; the base64 tier below gets a chance at it.
			r.logger.Debug("inline credential setting is not plain JSON", "setting", s.name)
			continue
		}
		return Source{Kind: KindInlineJSON, Setting: s.name, Document: doc, Raw: []byte(value)}, true
	}

	for _, s := range append(inline, inlineSetting{SettingCredentialsBase64, r.settings.CredentialsBase64}) {
		value := strings.TrimSpace(s.value)
		if value == "" {
			continue
		}
		decoded, ok := decodeBase64(value)
		if !ok {
			r.logger.Warn("credential setting is neither JSON nor base64", "setting", s.name)
			continue
		}
		doc, err := parseDocument(decoded)
		if err != nil {
			r.logger.Warn("decoded credential setting is not a credential document", "setting", s.name, "error", err)
			continue
		}
		return Source{Kind: KindInlineBase64JSON, Setting: s.name, Document: doc, Raw: decoded}, true
	}

	return Source{}, false
}

func (r *Resolver) fromPath(setting, path string, allowDir bool) (Source, bool) {
	info, err := os.Stat(path)
	if err != nil {
		r.logger.Warn("credential path is not accessible", "setting", setting, "path", path, "error", err)
		return Source{}, false
	}

	kind := KindFile
	file := path
	if info.IsDir() {
		if !allowDir {
			r.logger.Warn("credential path is a directory", "setting", setting, "path", path)
			return Source{}, false
		}
		found, ok := firstJSONFile(path)
		if !ok {
			r.logger.Warn("credential directory contains no json file", "setting", setting, "path", path)
			return Source{}, false
		}
		kind = KindDirectory
		file = found
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		r.logger.Warn("credential file is not readable", "setting", setting, "path", file, "error", err)
		return Source{}, false
	}
	doc, err := parseDocument(raw)
	if err != nil {
		r.logger.Warn("credential file is not a credential document", "setting", setting, "path", file, "error", err)
		return Source{}, false
	}

	return Source{Kind: kind, Setting: setting, Path: file, Document: doc, Raw: raw}, true
}

// firstJSONFile returns the first *.json entry in dir, in os.ReadDir order,
// that is a regular file after following symlinks. Mounted secret volumes
// expose their keys as links into a hidden data directory.
func firstJSONFile(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return path, true
	}
	return "", false
}

// parseDocument accepts a JSON object carrying a non-empty string "type".
func parseDocument(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode credential json: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("credential json is not an object")
	}
	t, ok := doc["type"].(string)
	if !ok || strings.TrimSpace(t) == "" {
		return nil, fmt.Errorf("credential json has no type")
	}
	return doc, nil
}

func decodeBase64(value string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(value); err == nil {
			return decoded, true
		}
	}
	return nil, false
}
