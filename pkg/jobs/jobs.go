// Package jobs implements the job table of the shell: background and stopped
// pipelines, the reaper that tracks their state changes, and switching jobs
// between the foreground and the background.
package jobs

import (
	"fmt"
	"sort"
	"sync"

	"src.lsh.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[jobs] ")

// Status is the status of a job.
type Status int

// Possible values of Status.
const (
	Running Status = iota
	Stopped
	Done
)

var statusNames = [...]string{Running: "Running", Stopped: "Stopped", Done: "Done"}

func (s Status) String() string {
	if 0 <= s && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Proc is one process of a job.
type Proc struct {
	Pid  int
	Done bool
	// Exit status, valid when Done. Death by signal n is 128+n.
	Code uint8
}

// Job is a pipeline running as one process group.
type Job struct {
	// 0 until the job is added to a table.
	ID     uint16
	// Process group of the job; 0 when its processes are in the group of
	// the shell.
	Pgid   int
	Procs  []*Proc
	Text   string
	Status Status

	// Set while the shell waits for the job in the foreground; the reaper
	// leaves such jobs alone.
	foreground bool
	// Order in which the job became current, used by Last.
	seq uint64
}

// New creates a job that is not in any table yet.
func New(pgid int, pids []int, text string) *Job {
	j := &Job{Pgid: pgid, Text: text}
	for _, pid := range pids {
		j.Procs = append(j.Procs, &Proc{Pid: pid})
	}
	return j
}

// Pids returns the pids of all processes of the job.
func (j *Job) Pids() []int {
	pids := make([]int, len(j.Procs))
	for i, p := range j.Procs {
		pids[i] = p.Pid
	}
	return pids
}

// ExitStatus returns the exit status of the last process of the job.
func (j *Job) ExitStatus() uint8 {
	if len(j.Procs) == 0 {
		return 0
	}
	return j.Procs[len(j.Procs)-1].Code
}

func (j *Job) allDone() bool {
	for _, p := range j.Procs {
		if !p.Done {
			return false
		}
	}
	return true
}

// Table is a table of jobs. All methods are safe for concurrent use.
type Table struct {
	mu            sync.Mutex
	jobs          map[uint16]*Job
	seq           uint64
	notifications []string
}

// NewTable creates an empty job table.
func NewTable() *Table {
	return &Table{jobs: map[uint16]*Job{}}
}

// Add creates a job in the table with the smallest unused ID.
func (t *Table) Add(pgid int, pids []int, text string, status Status) *Job {
	j := New(pgid, pids, text)
	j.Status = status
	t.Insert(j)
	return j
}

// Insert puts an existing job in the table, allocating the smallest unused
// ID. It is used when a foreground pipeline gets stopped.
func (t *Table) Insert(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j.ID == 0 {
		j.ID = t.freeID()
	}
	t.seq++
	j.seq = t.seq
	t.jobs[j.ID] = j
	logger.Printf("job %d (pgid %d) added: %s", j.ID, j.Pgid, j.Text)
}

func (t *Table) freeID() uint16 {
	for id := uint16(1); ; id++ {
		if _, used := t.jobs[id]; !used {
			return id
		}
	}
}

// Get finds a job by ID.
func (t *Table) Get(id uint16) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

// Last returns the job that most recently was started in the background or
// stopped.
func (t *Table) Last() (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var last *Job
	for _, j := range t.jobs {
		if last == nil || j.seq > last.seq {
			last = j
		}
	}
	return last, last != nil
}

// Remove removes a job from the table, freeing its ID.
func (t *Table) Remove(id uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}

// JobInfo is a copy of the public state of a job.
type JobInfo struct {
	ID     uint16
	Pgid   int
	Pids   []int
	Text   string
	Status Status
}

// List returns information about all jobs, sorted by ID.
func (t *Table) List() []JobInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	infos := make([]JobInfo, 0, len(t.jobs))
	for _, j := range t.jobs {
		infos = append(infos, JobInfo{j.ID, j.Pgid, j.Pids(), j.Text, j.Status})
	}
	sort.Slice(infos, func(i, k int) bool { return infos[i].ID < infos[k].ID })
	return infos
}

// Len returns the number of jobs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Info returns a copy of the public state of a job.
func (t *Table) Info(j *Job) JobInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return JobInfo{j.ID, j.Pgid, j.Pids(), j.Text, j.Status}
}

// Notifications drains the queued job notifications.
func (t *Table) Notifications() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ns := t.notifications
	t.notifications = nil
	return ns
}

func (t *Table) notifyLocked(format string, args ...any) {
	t.notifications = append(t.notifications, fmt.Sprintf(format, args...))
}

// Must be called with t.mu held.
func (t *Table) finishLocked(j *Job) {
	j.Status = Done
	if j.ID != 0 {
		delete(t.jobs, j.ID)
	}
}
