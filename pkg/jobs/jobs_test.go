package jobs

import (
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"src.lsh.sh/pkg/testutil"
)

func TestTable_SmallestUnusedID(t *testing.T) {
	tb := NewTable()
	j1 := tb.Add(100, []int{100}, "a", Running)
	j2 := tb.Add(200, []int{200}, "b", Running)
	j3 := tb.Add(300, []int{300}, "c", Stopped)
	if j1.ID != 1 || j2.ID != 2 || j3.ID != 3 {
		t.Fatalf("got IDs %d %d %d, want 1 2 3", j1.ID, j2.ID, j3.ID)
	}

	tb.Remove(2)
	if j := tb.Add(400, []int{400}, "d", Running); j.ID != 2 {
		t.Errorf("got ID %d, want reused ID 2", j.ID)
	}
	if j := tb.Add(500, []int{500}, "e", Running); j.ID != 4 {
		t.Errorf("got ID %d, want 4", j.ID)
	}
}

func TestTable_LastAndList(t *testing.T) {
	tb := NewTable()
	if _, ok := tb.Last(); ok {
		t.Errorf("Last of empty table found a job")
	}
	tb.Add(100, []int{100, 101}, "a | b", Running)
	tb.Add(200, []int{200}, "c", Stopped)
	if j, ok := tb.Last(); !ok || j.Text != "c" {
		t.Errorf("Last -> %v, %v", j, ok)
	}

	want := []JobInfo{
		{ID: 1, Pgid: 100, Pids: []int{100, 101}, Text: "a | b", Status: Running},
		{ID: 2, Pgid: 200, Pids: []int{200}, Text: "c", Status: Stopped},
	}
	if diff := cmp.Diff(want, tb.List()); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}
}

func TestStatus_String(t *testing.T) {
	if Running.String() != "Running" || Done.String() != "Done" || Status(9).String() != "Status(9)" {
		t.Errorf("unexpected Status strings")
	}
}

func TestReap_ReportsFinishedJob(t *testing.T) {
	tb := NewTable()
	pid := startInGroup(t, "true")
	j := tb.Add(pid, []int{pid}, "true", Running)

	waitUntil(t, func() bool {
		tb.Reap()
		return tb.Len() == 0
	})
	if j.Status != Done {
		t.Errorf("job status %v, want Done", j.Status)
	}
	if diff := cmp.Diff([]string{"[1] Done\ttrue"}, tb.Notifications()); diff != "" {
		t.Errorf("Notifications (-want +got):\n%s", diff)
	}
	if ns := tb.Notifications(); len(ns) != 0 {
		t.Errorf("Notifications not drained: %q", ns)
	}
}

func TestStart_ReapsOnSIGCHLD(t *testing.T) {
	tb := NewTable()
	stop := tb.Start()
	defer stop()

	pid := startInGroup(t, "sleep", "0.2")
	tb.Add(pid, []int{pid}, "sleep 0.2", Running)
	waitUntil(t, func() bool { return tb.Len() == 0 })
}

func TestWait_ExitStatus(t *testing.T) {
	tb := NewTable()
	pid := startInGroup(t, "sh", "-c", "exit 3")
	j := New(pid, []int{pid}, "sh")

	status, stopped := tb.Wait(j, -1)
	if status != 3 || stopped {
		t.Errorf("Wait -> %d, %v, want 3, false", status, stopped)
	}
	if j.Status != Done {
		t.Errorf("job status %v, want Done", j.Status)
	}
}

func TestWait_StoppedAndContinued(t *testing.T) {
	tb := NewTable()
	pid := startInGroup(t, "sleep", "10")
	j := New(pid, []int{pid}, "sleep 10")

	testutil.Must(unix.Kill(-pid, unix.SIGTSTP))
	status, stopped := tb.Wait(j, -1)
	if status != StopStatus || !stopped {
		t.Fatalf("Wait -> %d, %v, want %d, true", status, stopped, StopStatus)
	}
	if j.Status != Stopped {
		t.Errorf("job status %v, want Stopped", j.Status)
	}
	tb.Insert(j)
	if j.ID != 1 {
		t.Errorf("inserted job got ID %d, want 1", j.ID)
	}

	if err := tb.Background(j); err != nil {
		t.Fatal(err)
	}
	if tb.Info(j).Status != Running {
		t.Errorf("job status after Background %v, want Running", j.Status)
	}

	testutil.Must(tb.Signal(j, unix.SIGTERM))
	status, stopped = tb.Wait(j, -1)
	if status != 128+uint8(unix.SIGTERM) || stopped {
		t.Errorf("Wait -> %d, %v, want %d, false", status, stopped, 128+unix.SIGTERM)
	}
	if tb.Len() != 0 {
		t.Errorf("finished job still in table")
	}
}

func TestForeground_IsNotReportedAsDone(t *testing.T) {
	tb := NewTable()
	stop := tb.Start()
	defer stop()

	pid := startInGroup(t, "sh", "-c", "kill -STOP $$; exit 4")
	j := New(pid, []int{pid}, "sh")
	if _, stopped := tb.Wait(j, -1); !stopped {
		t.Fatal("job was not stopped")
	}
	tb.Insert(j)

	status, stopped, err := tb.Foreground(j, -1)
	if status != 4 || stopped || err != nil {
		t.Errorf("Foreground -> %d, %v, %v, want 4, false, nil", status, stopped, err)
	}
	tb.Reap()
	if ns := tb.Notifications(); len(ns) != 0 {
		t.Errorf("got notifications %q for a foreground job", ns)
	}
}

func TestBackground_FailureKeepsJobStopped(t *testing.T) {
	tb := NewTable()
	pid := startInGroup(t, "true")
	// Collect the process, so that its group no longer exists.
	tb.Wait(New(pid, []int{pid}, "true"), -1)

	j := tb.Add(pid, []int{pid}, "true", Stopped)
	if err := tb.Background(j); err == nil {
		t.Errorf("Background of a vanished group succeeded")
	}
	if status := tb.Info(j).Status; status != Stopped {
		t.Errorf("job status %v after failed Background, want Stopped", status)
	}
}

func TestSignal_JobWithoutGroup(t *testing.T) {
	tb := NewTable()
	pid := start(t, false, "sleep", "10")
	j := New(0, []int{pid}, "sleep 10")

	testutil.Must(tb.Signal(j, unix.SIGTERM))
	status, stopped := tb.Wait(j, -1)
	if status != 128+uint8(unix.SIGTERM) || stopped {
		t.Errorf("Wait -> %d, %v, want %d, false", status, stopped, 128+unix.SIGTERM)
	}
}

func startInGroup(t *testing.T, name string, args ...string) int {
	t.Helper()
	return start(t, true, name, args...)
}

func start(t *testing.T, newGroup bool, name string, args ...string) int {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not found", name)
	}
	proc, err := os.StartProcess(path, append([]string{name}, args...), &os.ProcAttr{
		Sys: &syscall.SysProcAttr{Setpgid: newGroup},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if newGroup {
			unix.Kill(-proc.Pid, unix.SIGKILL)
		} else {
			unix.Kill(proc.Pid, unix.SIGKILL)
		}
	})
	return proc.Pid
}

func waitUntil(t *testing.T, f func() bool) {
	t.Helper()
	deadline := time.Now().Add(testutil.Scaled(5 * time.Second))
	for !f() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
