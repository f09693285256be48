package connection

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"github.com/hugr-lab/docbridge/errs"
)

// Source is the connection input of a table definition. Exactly one of URI
// or Host is expected; Named refers to a predefined configuration whose
// fields are overridden by the explicitly set fields of the Source.
type Source struct {
	Named string `mapstructure:"named" yaml:"named,omitempty"`

	URI string `mapstructure:"uri" yaml:"uri,omitempty"`

	// Host is "host[:port][,host[:port]...]".
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	User     string `mapstructure:"user" yaml:"user,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	// Options is a URL query string, e.g. "authSource=admin&tls=true".
	Options string `mapstructure:"options" yaml:"options,omitempty"`

	Collection string `mapstructure:"collection" yaml:"collection,omitempty"`
	OIDColumn  string `mapstructure:"oid_column" yaml:"oid_column,omitempty"`
}

// Provider resolves named connection configurations.
type Provider interface {
	Lookup(name string) (Source, bool)
}

// Resolver turns Sources into Targets.
type Resolver struct {
	Provider Provider
}

// Resolve normalizes src into a canonical Target.
func (r *Resolver) Resolve(src Source) (*Target, error) {
	if src.Named != "" {
		if r == nil || r.Provider == nil {
			return nil, errs.Config("named connection %q requires a configuration provider", src.Named)
		}
		base, ok := r.Provider.Lookup(src.Named)
		if !ok {
			return nil, errs.Config("unknown named connection %q", src.Named)
		}
		src = merge(base, src)
	}
	return Resolve(src)
}

// merge overlays the explicitly set fields of override onto base.
func merge(base, override Source) Source {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	out := base
	out.Named = ""
	if override.URI != "" {
		out.Host = ""
	}
	if override.Host != "" {
		out.URI = ""
	}
	set(&out.URI, override.URI)
	set(&out.Host, override.Host)
	set(&out.Database, override.Database)
	set(&out.User, override.User)
	set(&out.Password, override.Password)
	set(&out.Options, override.Options)
	set(&out.Collection, override.Collection)
	set(&out.OIDColumn, override.OIDColumn)
	return out
}

// Resolve normalizes a URI-form or discrete-form Source without named
// configuration support.
func Resolve(src Source) (*Target, error) {
	if src.Named != "" {
		return nil, errs.Config("named connection %q requires a configuration provider", src.Named)
	}
	if src.URI == "" && src.Host == "" {
		return nil, errs.Config("either uri or host must be set")
	}
	if src.Collection == "" {
		return nil, errs.Config("collection must be set")
	}
	if src.Password != "" && src.User == "" {
		return nil, errs.Config("password is set without user")
	}

	if src.URI != "" {
		return fromURI(src)
	}
	return fromTuple(src)
}

func fromURI(src Source) (*Target, error) {
	if src.Options != "" {
		return nil, errs.Config("options cannot be combined with uri; put them in the uri query")
	}
	cs, err := connstring.Parse(src.URI)
	if err != nil {
		return nil, errs.Config("invalid uri %s: %v", RedactURI(src.URI), err)
	}
	if src.Host != "" && !sameHosts(src.Host, cs.RawHosts) {
		return nil, errs.Config("host %q conflicts with uri hosts %q", src.Host, strings.Join(cs.RawHosts, ","))
	}
	if src.Database != "" && cs.Database != "" && src.Database != cs.Database {
		return nil, errs.Config("database %q conflicts with uri database %q", src.Database, cs.Database)
	}

	t, err := build(cs, src)
	if err != nil {
		return nil, err
	}
	if src.Database != "" && t.DefaultDatabase == "" {
		t.DefaultDatabase = src.Database
		if !cs.AuthSourceSet {
			t.AuthDatabase = src.Database
		}
	}

	display := string(RedactURI(src.URI))
	args := []string{display, src.Collection}
	if src.OIDColumn != "" {
		args = append(args, src.OIDColumn)
	}
	t.display = DisplayString("MongoDB(" + quoteAll(args) + ")")
	return t, nil
}

func fromTuple(src Source) (*Target, error) {
	if src.Database == "" {
		return nil, errs.Config("database must be set with host")
	}
	uri := "mongodb://" + src.Host + "/" + url.PathEscape(src.Database)
	if src.Options != "" {
		uri += "?" + strings.TrimPrefix(src.Options, "?")
	}
	cs, err := connstring.Parse(uri)
	if err != nil {
		return nil, errs.Config("invalid host %q or options %q: %v", src.Host, src.Options, err)
	}

	t, err := build(cs, src)
	if err != nil {
		return nil, err
	}

	args := []string{src.Host, src.Database, src.Collection, src.User, src.Password}
	if src.Options != "" || src.OIDColumn != "" {
		args = append(args, src.Options)
	}
	if src.OIDColumn != "" {
		args = append(args, src.OIDColumn)
	}
	if src.User == "" && src.Password == "" && len(args) == 5 {
		args = args[:3]
	}
	t.display = DisplayString("MongoDB(" + string(RedactTuple(args)) + ")")
	return t, nil
}

// options consumed by build; everything else is passed to the driver as is.
var handledOptions = map[string]bool{
	"authsource":                  true,
	"authmechanism":               true,
	"tls":                         true,
	"ssl":                         true,
	"tlsinsecure":                 true,
	"sslinsecure":                 true,
	"tlscafile":                   true,
	"sslcertificateauthorityfile": true,
	"tlsallowinvalidcertificates": true,
	"tlsallowinvalidhostnames":    true,
}

func build(cs *connstring.ConnString, src Source) (*Target, error) {
	t := &Target{
		SRV:             cs.Scheme == connstring.SchemeMongoDBSRV,
		DefaultDatabase: cs.Database,
		Collection:      src.Collection,
		TLS:             cs.SSL,
		TLSOptions:      map[string]string{},
		ExtraOptions:    map[string]string{},
		OIDColumn:       src.OIDColumn,
		AuthMechanism:   cs.AuthMechanism,
	}

	for _, h := range cs.RawHosts {
		hp, err := splitHost(h, t.SRV)
		if err != nil {
			return nil, errs.Config("invalid host %q: %v", h, err)
		}
		t.Hosts = append(t.Hosts, hp)
	}

	user, password := cs.Username, cs.Password
	if src.User != "" {
		user, password = src.User, src.Password
	}
	if password != "" && user == "" {
		return nil, errs.Config("password is set without user")
	}
	if user != "" {
		t.Auth = &Credential{User: user, Password: password}
	}

	t.AuthDatabase = t.DefaultDatabase
	if cs.AuthSourceSet {
		t.AuthDatabase = cs.AuthSource
	}

	if t.SRV {
		// SRV implies TLS unless explicitly disabled.
		t.TLS = !cs.SSLSet || cs.SSL
	}
	if cs.SSLInsecureSet && cs.SSLInsecure {
		t.TLSOptions[OptInsecure] = "true"
	}
	if cs.SSLCaFileSet {
		t.TLSOptions[OptCAFile] = cs.SSLCaFile
	}
	for key, name := range map[string]string{
		"tlsallowinvalidcertificates": OptAllowInvalidCertificates,
		"tlsallowinvalidhostnames":    OptAllowInvalidHostnames,
	} {
		if v := lastOption(cs.Options, key); v != "" {
			if v != "true" && v != "false" {
				return nil, errs.Config("invalid value for %s: %q", name, v)
			}
			t.TLSOptions[name] = v
		}
	}
	if len(t.TrustDowngrades()) > 0 && !t.TLS {
		return nil, errs.Config("%s requires tls=true", strings.Join(t.TrustDowngrades(), ", "))
	}

	for key, values := range cs.Options {
		if handledOptions[key] || len(values) == 0 {
			continue
		}
		t.ExtraOptions[key] = values[len(values)-1]
	}
	return t, nil
}

func lastOption(opts map[string][]string, key string) string {
	values := opts[key]
	if len(values) == 0 {
		return ""
	}
	return strings.ToLower(values[len(values)-1])
}

func splitHost(h string, srv bool) (HostPort, error) {
	if srv {
		return HostPort{Host: h}, nil
	}
	if strings.HasSuffix(h, ".sock") {
		return HostPort{Host: h}, nil
	}
	host, port, err := net.SplitHostPort(h)
	if err != nil {
		// No port.
		return HostPort{Host: strings.Trim(h, "[]"), Port: DefaultPort}, nil
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return HostPort{}, fmt.Errorf("invalid port %q", port)
	}
	return HostPort{Host: host, Port: p}, nil
}

// sameHosts compares a discrete host list with the hosts of a URI,
// treating a missing port as the default port.
func sameHosts(hosts string, uriHosts []string) bool {
	list := strings.Split(hosts, ",")
	if len(list) != len(uriHosts) {
		return false
	}
	for i := range list {
		a, errA := splitHost(strings.TrimSpace(list[i]), false)
		b, errB := splitHost(uriHosts[i], false)
		if errA != nil || errB != nil || a != b {
			return false
		}
	}
	return true
}

func quoteAll(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quote(a)
	}
	return strings.Join(quoted, ", ")
}
