package clock

import (
	"testing"
	"time"
)

var base = time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

func TestSystemClock(t *testing.T) {
	c := New()
	if d := time.Since(c.Now()); d < 0 || d > time.Second {
		t.Errorf("Now drifted from wall clock by %v", d)
	}
	if loc := c.NowUTC().Location(); loc != time.UTC {
		t.Errorf("NowUTC location = %v, want UTC", loc)
	}
}

func TestMock_SetAndAdvance(t *testing.T) {
	m := NewMock(base)
	if !m.Now().Equal(base) {
		t.Fatalf("Now = %v, want %v", m.Now(), base)
	}

	m.Advance(90 * time.Minute)
	if want := base.Add(90 * time.Minute); !m.Now().Equal(want) {
		t.Errorf("after Advance: Now = %v, want %v", m.Now(), want)
	}

	later := base.Add(24 * time.Hour)
	m.Set(later)
	if !m.Now().Equal(later) {
		t.Errorf("after Set: Now = %v, want %v", m.Now(), later)
	}
	if got := m.Since(base); got != 24*time.Hour {
		t.Errorf("Since(base) = %v, want 24h", got)
	}
	if got := m.Until(later.Add(time.Hour)); got != time.Hour {
		t.Errorf("Until = %v, want 1h", got)
	}
}

func TestMock_TimerFiresOnAdvance(t *testing.T) {
	m := NewMock(base)
	tm := m.NewTimer(2 * time.Second)

	select {
	case <-tm.C():
		t.Fatal("timer fired before the clock moved")
	default:
	}

	m.Advance(time.Second)
	select {
	case <-tm.C():
		t.Fatal("timer fired one second early")
	default:
	}

	m.Advance(time.Second)
	select {
	case <-tm.C():
	default:
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestMock_TimerStopAndReset(t *testing.T) {
	m := NewMock(base)
	tm := m.NewTimer(time.Second)

	if !tm.Stop() {
		t.Error("Stop on a pending timer = false, want true")
	}
	m.Advance(time.Second)
	select {
	case <-tm.C():
		t.Fatal("stopped timer fired")
	default:
	}

	if tm.Reset(time.Second) {
		t.Error("Reset on a stopped timer = true, want false")
	}
	m.Advance(time.Second)
	select {
	case <-tm.C():
	default:
		t.Fatal("reset timer did not fire")
	}
}

func TestMock_TickerFiresEachPeriod(t *testing.T) {
	m := NewMock(base)
	tk := m.NewTicker(time.Minute)
	defer tk.Stop()

	for i := 0; i < 3; i++ {
		m.Advance(time.Minute)
		select {
		case <-tk.C():
		default:
			t.Fatalf("tick %d missing", i)
		}
	}
}

func TestMock_After(t *testing.T) {
	m := NewMock(base)
	ch := m.After(time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before the clock moved")
	default:
	}
	m.Advance(time.Second)
	select {
	case got := <-ch:
		if want := base.Add(time.Second); !got.Equal(want) {
			t.Errorf("After delivered %v, want %v", got, want)
		}
	default:
		t.Fatal("After did not fire")
	}
}
