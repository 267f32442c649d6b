package redis

import "strings"

const defaultNamespace = "sf"

type keyspace struct {
	namespace string
}

func (k keyspace) join(kind string, parts ...string) string {
	b := strings.Builder{}
	b.WriteString(k.namespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (k keyspace) rate(scope string) string   { return k.join("rate", scope) }
func (k keyspace) replay(scope string) string { return k.join("replay", scope) }
func (k keyspace) lock(name string) string    { return k.join("lock", name) }
