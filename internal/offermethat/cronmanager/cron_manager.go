// Scheduling of background maintenance jobs on cron expressions.
package cronmanager

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

type CronJobFunc func()

type Job struct {
	Func     CronJobFunc
	Schedule string
}

type JobRegistry map[string]Job

type CronManager struct {
	dispatcher  *cron.Cron
	jobs        map[string]cron.EntryID
	mu          sync.Mutex
	jobRegistry JobRegistry
}

func NewCronManager(jobRegistry JobRegistry) *CronManager {
	dispatcher := cron.New(
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	return &CronManager{
		dispatcher:  dispatcher,
		jobs:        make(map[string]cron.EntryID),
		jobRegistry: jobRegistry,
	}
}

// LoadJobs replaces the scheduled entries with the registry contents.
func (cm *CronManager) LoadJobs() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for name, entryID := range cm.jobs {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}

	for name, job := range cm.jobRegistry {
		if err := cm.addJob(name, job.Schedule); err != nil {
			slog.Error("Error adding job", "name", name, "err", err)
		}
	}

	return nil
}

func (cm *CronManager) addJob(name, schedule string) error {
	job, exists := cm.jobRegistry[name]
	if !exists {
		return fmt.Errorf("no job function registered for name: %s", name)
	}

	id, err := cm.dispatcher.AddFunc(schedule, job.Func)
	if err != nil {
		slog.Error("Failed to add job", "name", name, "err", err)
		return fmt.Errorf("failed to add job '%s': %v", name, err)
	}
	cm.jobs[name] = id
	return nil
}

func (cm *CronManager) RemoveJob(name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if entryID, exists := cm.jobs[name]; exists {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}
}

func (cm *CronManager) Start() {
	cm.dispatcher.Start()
}

func (cm *CronManager) Stop() {
	cm.dispatcher.Stop()
}
