package validators

import (
	"fmt"

	"storefront/internal/models"
)

// ValidateTrackEvent checks a single ingestion payload.
func ValidateTrackEvent(input *models.TrackEventInput) ValidationErrors {
	return ValidateStruct(input)
}

// ValidateTrackBatch checks each event of a batch and the batch size. Errors
// are reported with the event's index in the field name.
func ValidateTrackBatch(events []models.TrackEventInput, maxSize int) ValidationErrors {
	if len(events) == 0 {
		return ValidationErrors{{Field: "events", Tag: "required", Message: "events is required"}}
	}
	if maxSize > 0 && len(events) > maxSize {
		return ValidationErrors{{
			Field:   "events",
			Tag:     "max",
			Value:   fmt.Sprintf("%d", len(events)),
			Message: fmt.Sprintf("events must contain at most %d items", maxSize),
		}}
	}

	var errs ValidationErrors
	for i := range events {
		for _, e := range ValidateStruct(&events[i]) {
			e.Field = fmt.Sprintf("events[%d].%s", i, e.Field)
			errs = append(errs, e)
		}
	}
	return errs
}
