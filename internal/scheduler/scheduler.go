// Package scheduler holds pending one-shot reminder timers.
package scheduler

import (
	"log"
	"sync"
	"time"
)

// JobKey identifies a reminder: one chat, one task. At most one scheduled
// job exists per key; scheduling again replaces the previous job.
type JobKey struct {
	ChatID int64
	TaskID int
}

// NotifyFunc delivers a fired reminder. Delivery failures are the
// implementation's business to log; the scheduler never retries.
type NotifyFunc func(chatID int64, text string)

type job struct {
	timer  *time.Timer
	fireAt time.Time
	text   string
}

// Scheduler fires one-shot reminders through a notify callback. Jobs live
// only in memory; restart recovery is done by rehydrating from the task
// deadlines in the store.
type Scheduler struct {
	mu     sync.Mutex
	notify NotifyFunc
	jobs   map[JobKey]*job
}

func New(notify NotifyFunc) *Scheduler {
	return &Scheduler{
		notify: notify,
		jobs:   make(map[JobKey]*job),
	}
}

// Schedule sets the reminder for key, replacing any previous one. Times in
// the past fire immediately.
func (s *Scheduler) Schedule(key JobKey, at time.Time, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[key]; ok {
		old.timer.Stop()
		delete(s.jobs, key)
	}

	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	j := &job{fireAt: at, text: text}
	j.timer = time.AfterFunc(d, func() { s.fire(key) })
	s.jobs[key] = j
}

func (s *Scheduler) fire(key JobKey) {
	s.mu.Lock()
	j, ok := s.jobs[key]
	if ok {
		delete(s.jobs, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.notify(key.ChatID, j.text)
}

// Cancel removes the job for key if one is still scheduled.
func (s *Scheduler) Cancel(key JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	if !ok {
		return false
	}
	j.timer.Stop()
	delete(s.jobs, key)
	return true
}

// CancelTask removes every job for the task across all chats; part of the
// task-deletion cascade.
func (s *Scheduler) CancelTask(taskID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, j := range s.jobs {
		if key.TaskID == taskID {
			j.timer.Stop()
			delete(s.jobs, key)
			n++
		}
	}
	return n
}

// FireAt reports when the job for key will fire, if one is scheduled.
func (s *Scheduler) FireAt(key JobKey) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	if !ok {
		return time.Time{}, false
	}
	return j.fireAt, true
}

// Pending reports the number of scheduled jobs.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop cancels all timers. Used on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, j := range s.jobs {
		j.timer.Stop()
		delete(s.jobs, key)
	}
	log.Printf("scheduler: stopped")
}
