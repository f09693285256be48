package connection

import "strings"

// HiddenPlaceholder replaces secrets in display strings.
const HiddenPlaceholder = "[HIDDEN]"

// passwordArg is the position of the password in the discrete tuple
// (host, database, collection, user, password, options, oid_column).
const passwordArg = 4

// DisplayString is a connection definition safe to show to users.
// It is never accepted by the resolver or the driver.
type DisplayString string

func (d DisplayString) String() string {
	return string(d)
}

// RedactURI masks the password of a mongodb:// or mongodb+srv:// URI,
// leaving the user name and every other component untouched.
func RedactURI(uri string) DisplayString {
	scheme := strings.Index(uri, "://")
	if scheme < 0 {
		return DisplayString(uri)
	}
	rest := uri[scheme+3:]
	authority := rest
	if end := strings.IndexAny(rest, "/?"); end >= 0 {
		authority = rest[:end]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return DisplayString(uri)
	}
	userinfo := authority[:at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return DisplayString(uri)
	}
	return DisplayString(uri[:scheme+3] + userinfo[:colon+1] + HiddenPlaceholder + rest[at:])
}

// RedactTuple renders the discrete connection tuple as quoted arguments with
// the password argument replaced.
func RedactTuple(args []string) DisplayString {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		if i == passwordArg {
			a = HiddenPlaceholder
		}
		b.WriteString(quote(a))
	}
	return DisplayString(b.String())
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}
