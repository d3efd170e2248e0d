package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/scala-steward/coursier/pkg/errors"
	"github.com/scala-steward/coursier/pkg/httputil"
)

// LoadCredentials parses the COURSIER_CREDENTIALS value: either a path
// to a credentials file, or the inline form "host(realm) user:pass"
// with entries separated by newlines.
func LoadCredentials(value string) ([]Credential, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if strings.HasPrefix(value, "/") || strings.HasPrefix(value, "~") || fileReadable(value) {
		return ParseCredentialsFile(value)
	}
	return parseInlineCredentials(value)
}

func fileReadable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// ParseCredentialsFile reads the line-oriented credentials format:
//
//	host.central.host=repo.example.com
//	host.central.username=alice
//	host.central.password=s3cret
//	host.central.realm=private repo
//	host.central.https-only=true
//	host.central.auto=true
//	host.central.pass-on-redirect=false
//
// Each "host.<name>." prefix groups one credential; groups are emitted
// in the order their names first appear.
func ParseCredentialsFile(path string) ([]Credential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "credentials file %s", path)
	}
	defer f.Close()

	groups := map[string]*Credential{}
	var order []string

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.New(errors.ErrCodeParse,
				"%s:%d: malformed credentials line %q", path, lineNo, line)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		rest, ok := strings.CutPrefix(key, "host.")
		if !ok {
			return nil, errors.New(errors.ErrCodeParse,
				"%s:%d: credential keys start with \"host.\"", path, lineNo)
		}
		name, field, ok := strings.Cut(rest, ".")
		if !ok || name == "" {
			return nil, errors.New(errors.ErrCodeParse,
				"%s:%d: expected host.<name>.<field>", path, lineNo)
		}

		cred, seen := groups[name]
		if !seen {
			cred = &Credential{MatchHost: true}
			groups[name] = cred
			order = append(order, name)
		}
		if err := setCredentialField(cred, field, value); err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "%s:%d", path, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "reading %s", path)
	}

	out := make([]Credential, 0, len(order))
	for _, name := range order {
		out = append(out, *groups[name])
	}
	return out, nil
}

func setCredentialField(cred *Credential, field, value string) error {
	switch field {
	case "host":
		cred.Host = value
	case "username":
		cred.Username = value
	case "password":
		cred.Password = value
	case "realm":
		cred.Realm = value
	case "https-only":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		cred.HTTPSOnly = b
	case "auto":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		cred.Auto = b
	case "pass-on-redirect":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		cred.PassOnRedirect = b
	case "match-host":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		cred.MatchHost = b
	default:
		return errors.New(errors.ErrCodeParse, "unknown credential field %q", field)
	}
	return nil
}

// parseInlineCredentials parses "host(realm) user:pass" entries, one per
// line. The "(realm)" part is optional.
func parseInlineCredentials(value string) ([]Credential, error) {
	var out []Credential
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hostPart, userPass, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errors.New(errors.ErrCodeParse, "malformed inline credential %q", line)
		}
		cred := Credential{Auto: true, MatchHost: true}
		if i := strings.Index(hostPart, "("); i >= 0 && strings.HasSuffix(hostPart, ")") {
			cred.Host = hostPart[:i]
			cred.Realm = hostPart[i+1 : len(hostPart)-1]
		} else {
			cred.Host = hostPart
		}
		user, pass, ok := strings.Cut(strings.TrimSpace(userPass), ":")
		if !ok {
			return nil, errors.New(errors.ErrCodeParse, "inline credential %q missing user:pass", line)
		}
		cred.Username, cred.Password = user, pass
		out = append(out, cred)
	}
	return out, nil
}

// Store converts parsed credentials to an httputil store, preserving
// declaration order.
func Store(creds []Credential) *httputil.CredentialStore {
	store := httputil.NewCredentialStore()
	for _, c := range creds {
		store.Add(httputil.Credential{
			HostPattern:    c.Host,
			Username:       c.Username,
			Password:       c.Password,
			Realm:          c.Realm,
			HTTPSOnly:      c.HTTPSOnly,
			Auto:           c.Auto,
			PassOnRedirect: c.PassOnRedirect,
			RealmOnly:      !c.MatchHost,
		})
	}
	return store
}
