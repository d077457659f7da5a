package reconcile

import (
	"sort"

	"archivist/internal/catalog"
)

// Cluster is a group of staged entries sharing display name and size.
type Cluster struct {
	Name  string
	Size  uint64
	Paths []string
}

type clusterKey struct {
	name string
	size uint64
}

// Dedupe collapses entries sharing (display name, size) to a single
// representative, the member with the lexicographically smallest identity.
// The survivors are returned sorted by identity along with every cluster that
// had more than one member.
func Dedupe(staged []catalog.BasicEntry) ([]catalog.BasicEntry, []Cluster) {
	groups := make(map[clusterKey][]catalog.BasicEntry, len(staged))
	for _, entry := range staged {
		key := clusterKey{entry.DisplayName(), entry.Size}
		groups[key] = append(groups[key], entry)
	}

	kept := make([]catalog.BasicEntry, 0, len(groups))
	var clusters []Cluster
	for key, members := range groups {
		sort.Slice(members, func(i, j int) bool {
			return members[i].Identity < members[j].Identity
		})
		kept = append(kept, members[0])
		if len(members) < 2 {
			continue
		}
		paths := make([]string, len(members))
		for i, member := range members {
			paths[i] = member.Identity
		}
		clusters = append(clusters, Cluster{Name: key.name, Size: key.size, Paths: paths})
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Identity < kept[j].Identity })
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Name != clusters[j].Name {
			return clusters[i].Name < clusters[j].Name
		}
		return clusters[i].Size < clusters[j].Size
	})
	return kept, clusters
}
