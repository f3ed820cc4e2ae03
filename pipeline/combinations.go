package pipeline

import (
	"testribute/model"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// GenerateCombinations builds the cartesian product of the execution endpoints and the
// distinct access URLs of every required object. An object without access URLs yields
// no combinations at all.
func GenerateCombinations(
	taskInfo map[string]model.TaskInfo,
	objects model.ObjectCatalog,
	objectIDs []string,
) []model.AccessURIs {
	tesURIs := maps.Keys(taskInfo)
	slices.Sort(tesURIs)

	if len(tesURIs) == 0 {
		return nil
	}

	urlsPerObject := make([][]string, len(objectIDs))
	total := len(tesURIs)

	for i, id := range objectIDs {
		urlsPerObject[i] = distinctAccessURLs(objects[id])
		if len(urlsPerObject[i]) == 0 {
			return nil
		}

		total *= len(urlsPerObject[i])
	}

	combinations := make([]model.AccessURIs, 0, total)
	indices := make([]int, len(objectIDs))

	for _, tesURI := range tesURIs {
		for i := range indices {
			indices[i] = 0
		}

		for {
			chosen := make(map[string]string, len(objectIDs))
			for i, id := range objectIDs {
				chosen[id] = urlsPerObject[i][indices[i]]
			}

			combinations = append(combinations, model.AccessURIs{TesURI: tesURI, Objects: chosen})

			pos := len(indices) - 1
			for ; pos >= 0; pos-- {
				indices[pos]++
				if indices[pos] < len(urlsPerObject[pos]) {
					break
				}

				indices[pos] = 0
			}

			if pos < 0 {
				break
			}
		}
	}

	return combinations
}

// distinctAccessURLs deduplicates by URL string since several storage endpoints may
// mirror the same access method.
func distinctAccessURLs(locations map[string]model.DrsObject) []string {
	storageURIs := maps.Keys(locations)
	slices.Sort(storageURIs)

	seen := make(map[string]struct{})
	urls := make([]string, 0)

	for _, storageURI := range storageURIs {
		for _, method := range locations[storageURI].AccessMethods {
			if method.AccessURL == nil || method.AccessURL.URL == "" {
				continue
			}

			if _, ok := seen[method.AccessURL.URL]; ok {
				continue
			}

			seen[method.AccessURL.URL] = struct{}{}
			urls = append(urls, method.AccessURL.URL)
		}
	}

	return urls
}
