package audio

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// PSResolver resolves process ids to executable names via gopsutil.
type PSResolver struct{}

func (PSResolver) Resolve(pid uint32) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// NameCache memoizes pid-to-name lookups so session enumeration does not
// re-resolve the same process on every frame. It is cleared wholesale on a
// fixed cadence (an age-based amnesty) to bound memory and tolerate pid
// reuse; there is no per-entry TTL.
type NameCache struct {
	resolver ProcessNameResolver
	names    map[uint32]string
}

func NewNameCache(resolver ProcessNameResolver) *NameCache {
	return &NameCache{
		resolver: resolver,
		names:    make(map[uint32]string),
	}
}

// Lookup returns the lower-cased process name for pid, or "" when the pid
// cannot be resolved. Failed resolutions are cached too: a dead process
// will not be re-queried until the next amnesty.
func (c *NameCache) Lookup(pid uint32) string {
	if name, ok := c.names[pid]; ok {
		return name
	}
	name, err := c.resolver.Resolve(pid)
	if err != nil {
		name = ""
	}
	name = strings.ToLower(name)
	c.names[pid] = name
	return name
}

func (c *NameCache) Reset() {
	c.names = make(map[uint32]string)
}

func (c *NameCache) Len() int { return len(c.names) }
