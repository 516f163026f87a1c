// Package dataset implements the dataset resolver (C6): given a
// RequestTemplate's dataset_run_mode and its candidate rows, it decides
// which Dataset(s) a single execution pass should run against.
package dataset

import (
	"errors"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

// ErrMismatchedRequest is returned by Validate when a pinned dataset
// belongs to a different request template than the one being executed.
var ErrMismatchedRequest = errors.New("dataset does not belong to the request")

// ErrDisabled is returned by Validate when a pinned dataset is disabled.
var ErrDisabled = errors.New("dataset is disabled")

// Validate checks a dataset pinned by id (step.DatasetID or a case run's
// explicit dataset_id) against the request template it is executed under:
// it must belong to that request and be enabled. Resolve's own candidate
// lists are already request-scoped and enabled-filtered, so only the
// pinned-by-id path needs this check.
func Validate(tmpl *models.RequestTemplate, ds *models.Dataset) error {
	if ds.RequestID != tmpl.ID {
		return ErrMismatchedRequest
	}
	if !ds.IsEnabled {
		return ErrDisabled
	}
	return nil
}

// Resolve returns the ordered list of datasets to execute for one pass
// over tmpl, given every enabled dataset belonging to it.
//
//   - request_default: the dataset flagged default (or DefaultDatasetID),
//     or a single nil entry (template defaults only) when none is set.
//   - single: the same rule as request_default. The orchestrator rejects a
//     single-mode step that pins no dataset before it calls Resolve.
//   - all: every enabled dataset, in the order given (the repository lists
//     them by sort, then id), or a single nil entry when the template has
//     none.
func Resolve(tmpl *models.RequestTemplate, datasets []*models.Dataset) []*models.Dataset {
	enabled := enabledDatasets(datasets)

	switch tmpl.DatasetRunMode {
	case models.DatasetRunModeAll:
		if len(enabled) == 0 {
			return []*models.Dataset{nil}
		}
		return enabled

	case models.DatasetRunModeSingle, models.DatasetRunModeRequestDefault:
		return []*models.Dataset{defaultOf(tmpl, enabled)}

	default:
		return []*models.Dataset{defaultOf(tmpl, enabled)}
	}
}

func enabledDatasets(datasets []*models.Dataset) []*models.Dataset {
	out := make([]*models.Dataset, 0, len(datasets))
	for _, ds := range datasets {
		if ds.IsEnabled {
			out = append(out, ds)
		}
	}
	return out
}

func defaultOf(tmpl *models.RequestTemplate, enabled []*models.Dataset) *models.Dataset {
	if tmpl.DefaultDatasetID != nil {
		for _, ds := range enabled {
			if ds.ID == *tmpl.DefaultDatasetID {
				return ds
			}
		}
	}
	for _, ds := range enabled {
		if ds.IsDefault {
			return ds
		}
	}
	return nil
}
