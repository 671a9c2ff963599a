package usecase

import (
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// jobFactory builds jobs with the configured attempt limit.
type jobFactory struct {
	maxAttempts int
}

func newJobFactory(maxAttempts int) jobFactory {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return jobFactory{maxAttempts: maxAttempts}
}

func (f jobFactory) job(jobType model.JobType, payload interface{}, priority int) (*model.Job, error) {
	return model.NewJob(jobType, payload, priority, f.maxAttempts)
}

func (f jobFactory) notification(p model.SendNotificationPayload) (*model.Job, error) {
	return f.job(model.JobTypeSendNotification, p, model.PrioritySendNotification)
}
