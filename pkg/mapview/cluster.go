package mapview

import "math"

// Zoom thresholds for marker clustering. Below clusterMaxZoom markers are
// grouped; the grouping radius is a step function of zoom expressed in raw
// lat/lon degrees, a crude proxy for on-screen pixel distance.
const (
	clusterMaxZoom = 12

	wideClusterZoom = 8
	midClusterZoom  = 10

	wideClusterDistance = 0.05
	midClusterDistance  = 0.02
	nearClusterDistance = 0.01
)

// Cluster is a greedily formed group of nearby stations rendered as one
// aggregate marker. Clusters are rebuilt wholesale on every pass and never
// mutated in place.
type Cluster struct {
	// Lat and Lon are the arithmetic mean of the member coordinates.
	Lat     float64   `json:"lat"`
	Lon     float64   `json:"lon"`
	Members []Station `json:"members"`
}

// Count returns the number of member stations.
func (c *Cluster) Count() int { return len(c.Members) }

// RepresentativePrice returns the minimum non-nil Gazole price among the
// members, used to color the aggregate marker. Ties resolve to the first
// member in input order. Nil when no member has a Gazole price.
func (c *Cluster) RepresentativePrice() *float64 {
	var best *float64
	for i := range c.Members {
		p := c.Members[i].Gazole
		if p == nil {
			continue
		}
		if best == nil || *p < *best {
			best = p
		}
	}
	return best
}

// First returns the first member by input order. Clicking a cluster marker
// selects this station; showing a member sub-list instead is a possible
// future refinement.
func (c *Cluster) First() Station { return c.Members[0] }

// ClusterResult partitions the visible stations into aggregate markers and
// individual ones.
type ClusterResult struct {
	Clusters []Cluster `json:"clusters"`
	Singles  []Station `json:"singles"`
}

// clusterDistanceForZoom returns the grouping radius in degrees for the
// given zoom level.
func clusterDistanceForZoom(zoom int) float64 {
	switch {
	case zoom < wideClusterZoom:
		return wideClusterDistance
	case zoom < midClusterZoom:
		return midClusterDistance
	default:
		return nearClusterDistance
	}
}

// ComputeClusters partitions the visible stations into clusters and
// singletons for the given zoom level. At zoom >= 12 clustering is disabled
// and every station is returned as a singleton in input order.
//
// The pass is greedy and order-dependent: stations are visited in input
// order, the first unassigned station seeds a group and owns every
// unassigned neighbor within the zoom's planar degree radius. Every station
// ends up in exactly one cluster or singleton, and re-running on identical
// input yields an identical partition. Callers must hand stations over in a
// stable order (the storage layer orders by id) for reproducible output.
func ComputeClusters(stations []Station, zoom int) ClusterResult {
	if zoom >= clusterMaxZoom {
		return ClusterResult{Singles: stations}
	}

	maxDist := clusterDistanceForZoom(zoom)
	assigned := make([]bool, len(stations))

	var result ClusterResult
	for i := range stations {
		if assigned[i] {
			continue
		}
		assigned[i] = true

		var neighbors []int
		for j := i + 1; j < len(stations); j++ {
			if assigned[j] {
				continue
			}
			dLat := stations[i].Lat - stations[j].Lat
			dLon := stations[i].Lon - stations[j].Lon
			if math.Sqrt(dLat*dLat+dLon*dLon) <= maxDist {
				neighbors = append(neighbors, j)
			}
		}

		if len(neighbors) == 0 {
			result.Singles = append(result.Singles, stations[i])
			continue
		}

		members := make([]Station, 0, len(neighbors)+1)
		members = append(members, stations[i])
		for _, j := range neighbors {
			assigned[j] = true
			members = append(members, stations[j])
		}

		var sumLat, sumLon float64
		for _, m := range members {
			sumLat += m.Lat
			sumLon += m.Lon
		}
		n := float64(len(members))
		result.Clusters = append(result.Clusters, Cluster{
			Lat:     sumLat / n,
			Lon:     sumLon / n,
			Members: members,
		})
	}

	return result
}
