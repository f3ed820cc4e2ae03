package pipeline

import (
	"fmt"

	"testribute/model"

	"github.com/pkg/errors"
)

// EstimateTimes sets queue time plus requested execution time, in seconds.
func EstimateTimes(
	candidates []Candidate,
	taskInfo map[string]model.TaskInfo,
	requirements model.ResourceRequirements,
) ([]Candidate, []string, error) {
	queueSeconds := make(map[string]float64)
	rejected := make(map[string]struct{})
	warnings := make([]string, 0)
	estimated := make([]Candidate, 0, len(candidates))

	for _, candidate := range candidates {
		endpoint := candidate.URIs.TesURI
		if _, ok := rejected[endpoint]; ok {
			continue
		}

		queue, ok := queueSeconds[endpoint]
		if !ok {
			seconds, err := taskInfo[endpoint].EstimatedQueueTime.Seconds()
			if err != nil {
				rejected[endpoint] = struct{}{}
				warnings = append(warnings, fmt.Sprintf("Execution endpoint '%s' dropped: %s.", endpoint, err))
				continue
			}

			queue = seconds
			queueSeconds[endpoint] = queue
		}

		next := candidate
		next.Time = queue + float64(requirements.ExecutionTimeSec)
		estimated = append(estimated, next)
	}

	if len(estimated) == 0 {
		return nil, warnings, errors.WithStack(model.NewResourceUnavailableError(
			"Services cannot be ranked. No execution endpoint provided a usable queue time estimate."))
	}

	return estimated, warnings, nil
}
