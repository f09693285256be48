// Package connection resolves the accepted connection forms of a Mongo table
// into one canonical Target and renders its credential-free display form.
package connection

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultPort is used for hosts given without a port.
const DefaultPort = 27017

// Trust downgrade options. They disable certificate checks and are meant
// for test and self-signed deployments only.
const (
	OptAllowInvalidCertificates = "tlsAllowInvalidCertificates"
	OptAllowInvalidHostnames    = "tlsAllowInvalidHostnames"
	OptInsecure                 = "tlsInsecure"
	OptCAFile                   = "tlsCAFile"
)

// HostPort is one seed host.
type HostPort struct {
	Host string
	Port int
}

func (h HostPort) String() string {
	if h.Port == 0 {
		return h.Host
	}
	return h.Host + ":" + strconv.Itoa(h.Port)
}

// Credential is the user/secret pair of an authenticated target.
type Credential struct {
	User     string
	Password string
}

// Target is the canonical connection target of a table.
// It is immutable after Resolve and safe to share between scans.
type Target struct {
	SRV             bool
	Hosts           []HostPort
	Auth            *Credential
	AuthMechanism   string
	AuthDatabase    string
	DefaultDatabase string
	Collection      string
	TLS             bool
	TLSOptions      map[string]string
	ExtraOptions    map[string]string
	OIDColumn       string

	display DisplayString
}

// Display returns the table's connection definition with the secret masked.
func (t *Target) Display() DisplayString {
	return t.display
}

// Anonymous reports whether no credentials are used.
func (t *Target) Anonymous() bool {
	return t.Auth == nil
}

// TrustDowngrades lists the enabled options that relax TLS verification.
func (t *Target) TrustDowngrades() []string {
	var out []string
	for _, k := range []string{OptInsecure, OptAllowInvalidCertificates, OptAllowInvalidHostnames} {
		if t.TLSOptions[k] == "true" {
			out = append(out, k)
		}
	}
	return out
}

// Fingerprint identifies the cluster and credentials of the target, so
// tables sharing them can share one client.
func (t *Target) Fingerprint() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(t.clientURI())
	if t.Auth != nil {
		_, _ = d.WriteString("\x00" + t.Auth.User + "\x00" + t.Auth.Password + "\x00" + t.AuthDatabase + "\x00" + t.AuthMechanism)
	}
	for _, k := range sortedKeys(t.TLSOptions) {
		_, _ = d.WriteString("\x00" + k + "=" + t.TLSOptions[k])
	}
	return d.Sum64()
}

// clientURI renders hosts and non-secret options; credentials, authSource
// and TLS settings are applied separately.
func (t *Target) clientURI() string {
	var b strings.Builder
	if t.SRV {
		b.WriteString("mongodb+srv://")
	} else {
		b.WriteString("mongodb://")
	}
	for i, h := range t.Hosts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(h.String())
	}
	b.WriteByte('/')
	b.WriteString(url.PathEscape(t.DefaultDatabase))
	if len(t.ExtraOptions) > 0 {
		b.WriteByte('?')
		for i, k := range sortedKeys(t.ExtraOptions) {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(t.ExtraOptions[k]))
		}
	}
	return b.String()
}

// ClientOptions builds the driver options for the target.
// This is the only place the secret leaves the Target.
func (t *Target) ClientOptions() (*options.ClientOptions, error) {
	opts := options.Client().ApplyURI(t.clientURI())
	if t.Auth != nil {
		opts.SetAuth(options.Credential{
			AuthMechanism: t.AuthMechanism,
			AuthSource:    t.AuthDatabase,
			Username:      t.Auth.User,
			Password:      t.Auth.Password,
			PasswordSet:   t.Auth.Password != "",
		})
	}
	if t.TLS {
		cfg, err := t.tlsConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(cfg)
	}
	return opts, nil
}

func (t *Target) tlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if file := t.TLSOptions[OptCAFile]; file != "" {
		pem, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", OptCAFile, err)
		}
		cfg.RootCAs = x509.NewCertPool()
		if !cfg.RootCAs.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", file)
		}
	}

	insecure := t.TLSOptions[OptInsecure] == "true"
	allowCerts := insecure || t.TLSOptions[OptAllowInvalidCertificates] == "true"
	allowHosts := insecure || t.TLSOptions[OptAllowInvalidHostnames] == "true"
	switch {
	case allowCerts:
		cfg.InsecureSkipVerify = true
	case allowHosts:
		// Verify the chain but not the hostname.
		roots := cfg.RootCAs
		cfg.InsecureSkipVerify = true
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return fmt.Errorf("server presented no certificate")
			}
			opts := x509.VerifyOptions{Roots: roots, Intermediates: x509.NewCertPool()}
			for _, c := range cs.PeerCertificates[1:] {
				opts.Intermediates.AddCert(c)
			}
			_, err := cs.PeerCertificates[0].Verify(opts)
			return err
		}
	}
	return cfg, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
