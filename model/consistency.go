package model

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// CheckObjectConsistency requires every object to be offered by at least one storage
// endpoint, and all endpoints offering it to agree on size and on checksums of each type.
func CheckObjectConsistency(objectIDs []string, catalog ObjectCatalog) error {
	for _, id := range objectIDs {
		locations := catalog[id]
		if len(locations) == 0 {
			return NewResourceUnavailableError(
				"Services cannot be ranked. Object '%s' is not available at any of the specified DRS instances.", id)
		}

		storageURIs := maps.Keys(locations)
		slices.Sort(storageURIs)

		sizes := make(map[int64]struct{})
		checksums := make(map[ChecksumType]map[string]struct{})

		for _, uri := range storageURIs {
			object := locations[uri]
			sizes[object.Size] = struct{}{}

			for _, checksum := range object.Checksums {
				if _, ok := checksums[checksum.Type]; !ok {
					checksums[checksum.Type] = make(map[string]struct{})
				}

				checksums[checksum.Type][checksum.Checksum] = struct{}{}
			}
		}

		if len(sizes) > 1 {
			found := maps.Keys(sizes)
			slices.Sort(found)
			return NewResourceUnavailableError(
				"Services cannot be ranked. Object '%s' has different sizes across different DRS instances: %v",
				id, found)
		}

		for checksumType, values := range checksums {
			if len(values) > 1 {
				found := maps.Keys(values)
				slices.Sort(found)
				return NewResourceUnavailableError(
					"Services cannot be ranked. Object '%s' has different %s checksums across different DRS instances: %v",
					id, checksumType, found)
			}
		}
	}

	return nil
}

// ObjectSizes takes the size of each object once. Sizes agree across endpoints after
// CheckObjectConsistency.
func ObjectSizes(catalog ObjectCatalog) map[string]int64 {
	sizes := make(map[string]int64, len(catalog))
	for id, locations := range catalog {
		for _, object := range locations {
			sizes[id] = object.Size
			break
		}
	}

	return sizes
}
