// Package creds recovers the sheet service-account credentials from
// whatever shape the deployment environment managed to deliver them in.
package creds

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/webforms/sheetsink/log"
	"github.com/webforms/sheetsink/model"
)

// Source is one resolution strategy. Resolve must be pure: it inspects
// its configured raw value and either yields a complete pair or passes.
type Source struct {
	Name    string
	Resolve func() (model.Credentials, bool)
}

// Resolver tries its sources in order; the first complete pair wins.
type Resolver struct {
	sources []Source
}

// NewResolver builds the standard fallback chain: a base64-wrapped
// secret, a raw (possibly double-encoded) JSON secret, and finally
// field-level pattern salvage from the raw text. The chain exists
// because the same credential reaches different environments through
// different provisioning channels, some of which mangle it.
func NewResolver(b64, rawJSON string) *Resolver {
	return &Resolver{sources: []Source{
		{Name: "base64", Resolve: func() (model.Credentials, bool) { return fromBase64(b64) }},
		{Name: "json", Resolve: func() (model.Credentials, bool) { return fromJSON(rawJSON) }},
		{Name: "pattern", Resolve: func() (model.Credentials, bool) { return fromPattern(rawJSON) }},
	}}
}

var ErrNoCredentials = errors.New("no credential source yielded both client_email and private_key")

func (r *Resolver) Resolve() (model.Credentials, error) {
	for _, src := range r.sources {
		log.Debugf("creds: trying %s source", src.Name)
		if c, ok := src.Resolve(); ok {
			log.Infof("creds: resolved via %s source", src.Name)
			return c, nil
		}
	}
	return model.Credentials{}, ErrNoCredentials
}

func fromBase64(raw string) (model.Credentials, bool) {
	if raw == "" {
		return model.Credentials{}, false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		log.Debugf("creds: base64 decode failed: %v", err)
		return model.Credentials{}, false
	}

	var c model.Credentials
	if err := json.Unmarshal(decoded, &c); err != nil {
		log.Debugf("creds: base64 payload is not credential JSON: %v", err)
		return model.Credentials{}, false
	}
	return c, c.Complete()
}

func fromJSON(raw string) (model.Credentials, bool) {
	if raw == "" {
		return model.Credentials{}, false
	}

	// Some provisioning channels JSON-encode the secret a second time,
	// leaving a JSON string that contains the credential object.
	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		raw = inner
	}

	var c model.Credentials
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.Debugf("creds: raw JSON parse failed: %v", err)
		return model.Credentials{}, false
	}
	return c, c.Complete()
}

var (
	reClientEmail = regexp.MustCompile(`"client_email"\s*:\s*"([^"]+)"`)
	rePrivateKey  = regexp.MustCompile(`"private_key"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// fromPattern is the degraded mode: pull the two fields out of corrupted
// or partially escaped credential text without parsing it as JSON.
func fromPattern(raw string) (model.Credentials, bool) {
	if raw == "" {
		return model.Credentials{}, false
	}

	email := reClientEmail.FindStringSubmatch(raw)
	key := rePrivateKey.FindStringSubmatch(raw)
	if email == nil || key == nil {
		return model.Credentials{}, false
	}

	c := model.Credentials{
		ClientEmail: email[1],
		PrivateKey:  unescapeKey(key[1]),
	}
	return c, c.Complete()
}

// unescapeKey restores real newlines in the PEM block: double-escaped
// sequences first, then single-escaped ones.
func unescapeKey(key string) string {
	key = strings.ReplaceAll(key, `\\n`, "\n")
	key = strings.ReplaceAll(key, `\n`, "\n")
	return key
}
