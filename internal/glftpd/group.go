package glftpd

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultGroupName is reported when a group id has no entry in the group file.
const DefaultGroupName = "NoGroup"

const defaultGroupCacheCleanup = 5 * time.Minute

// GroupFile resolves numeric group ids using glftpd's etc/group file
// (name:description:gid:...). Resolved names are cached for ttl.
type GroupFile struct {
	path  string
	names *cache.Cache
}

// NewGroupFile creates a resolver for the group file at path.
func NewGroupFile(path string, ttl time.Duration) *GroupFile {
	return &GroupFile{
		path:  path,
		names: cache.New(ttl, defaultGroupCacheCleanup),
	}
}

// GroupName returns the name for gid, or DefaultGroupName if it cannot be found.
func (g *GroupFile) GroupName(gid int32) string {
	k := strconv.FormatInt(int64(gid), 10)
	if name, ok := g.names.Get(k); ok {
		return name.(string)
	}

	name := lookupGroup(g.path, gid)
	g.names.SetDefault(k, name)
	return name
}

func lookupGroup(path string, gid int32) string {
	f, err := os.Open(path)
	if err != nil {
		return DefaultGroupName
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 3 || fields[0] == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 32)
		if err != nil || int32(id) != gid {
			continue
		}
		return fields[0]
	}
	return DefaultGroupName
}
