package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ilievs/sensorbridge/core"
)

type countingProcessor struct {
	mutex    sync.Mutex
	listed   int
	readings int
}

func (p *countingProcessor) ProcessSensorListed(ev core.SensorListed) (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.listed++
	return true, nil
}

func (p *countingProcessor) ProcessReading(r core.Reading) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.readings++
	return nil
}

func (p *countingProcessor) Readings() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.readings
}

type recordingObserver struct {
	mutex    sync.Mutex
	statuses []int
	readings int
}

func (o *recordingObserver) ObserveCommand(status int, elapsed time.Duration) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) ObserveReadings(n int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.readings += n
}

func startLoop(t *testing.T, m core.SensorManager, opts Options) (*Loop, context.CancelFunc) {
	t.Helper()
	loop := NewLoop(m, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop, cancel
}

func TestSubmitSerializesCommands(t *testing.T) {
	m := core.NewBasicSensorManager()
	m.SetMessageProcessor(&countingProcessor{})
	loop, _ := startLoop(t, m, Options{})

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				if _, err := loop.Submit(context.Background(), "activate accelerometer"); err != nil {
					t.Error("activate failed:", err)
				}
				if n, err := loop.Submit(context.Background(), "list"); err != nil || n != 4 {
					t.Error("Expected list of 4, but got", n, err)
				}
			}
		}()
	}
	wg.Wait()

	infos, err := loop.Snapshot(context.Background())
	if err != nil {
		t.Fatal("snapshot failed:", err)
	}
	if !infos[core.Accelerometer].Enabled {
		t.Fatal("Expected accelerometer to be enabled")
	}
}

func TestSubmitReportsStatus(t *testing.T) {
	obs := &recordingObserver{}
	loop, _ := startLoop(t, core.NewBasicSensorManager(), Options{Observer: obs})

	n, err := loop.Submit(context.Background(), "delay proximity 1")
	if !errors.Is(err, core.ErrInvalidDelay) || n != core.StatusInvalidDelay {
		t.Fatal("Expected InvalidDelay, but got", n, err)
	}
	if _, err := loop.Submit(context.Background(), "activate proximity"); err != nil {
		t.Fatal("activate failed:", err)
	}

	obs.mutex.Lock()
	defer obs.mutex.Unlock()
	if len(obs.statuses) != 2 || obs.statuses[0] != core.StatusInvalidDelay || obs.statuses[1] != core.StatusOK {
		t.Fatal("Expected observed statuses [-3 0], but got", obs.statuses)
	}
}

func TestSamplingTicks(t *testing.T) {
	m := core.NewBasicSensorManager()
	p := &countingProcessor{}
	m.SetMessageProcessor(p)
	obs := &recordingObserver{}
	loop, _ := startLoop(t, m, Options{SampleInterval: time.Millisecond, Observer: obs})

	if _, err := loop.Submit(context.Background(), "activate accelerometer"); err != nil {
		t.Fatal("activate failed:", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.Readings() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("Expected readings to be sampled, but got", p.Readings())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	loop, cancel := startLoop(t, core.NewBasicSensorManager(), Options{})
	cancel()
	<-loop.stopped

	if _, err := loop.Submit(context.Background(), "list"); !errors.Is(err, ErrStopped) {
		t.Fatal("Expected ErrStopped, but got", err)
	}
}

func TestSubmitHonoursContext(t *testing.T) {
	// never started, so nothing receives the request
	loop := NewLoop(core.NewBasicSensorManager(), Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := loop.Submit(ctx, "list"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("Expected DeadlineExceeded, but got", err)
	}
}
