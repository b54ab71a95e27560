// Stress driver for the disposable exchange: one producer publishing tagged
// multi-word records, one consumer validating that no record is ever torn
// and no tag is ever delivered twice. Exits nonzero on the first corrupt
// observation.
package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/aradilov/disposable"
)

const recordWords = 100

type record struct {
	words [recordWords]uint64
}

func main() {
	var (
		duration = flag.Duration("duration", 10*time.Second, "how long to run the producer/consumer pair")
		retries  = flag.Uint("retries", 2, "CAS retries per slot operation")
		backoff  = flag.Uint("backoff", 0, "max random yields between retries (0 = plain Gosched)")
		report   = flag.Duration("report", time.Second, "progress report interval")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	yield := disposable.Gosched
	if *backoff > 0 {
		yield = disposable.Backoff(uint32(*backoff))
	}
	slot := disposable.NewWithPolicy[record](uint32(*retries), yield)

	var (
		stop    atomic.Bool
		corrupt atomic.Bool

		produced atomic.Uint64
		missed   atomic.Uint64
		consumed atomic.Uint64
		pauses   atomic.Uint64
	)

	var wg sync.WaitGroup

	// Producer: stamp every word of the record with the same increasing tag.
	// The tag advances whether or not the put lands; dropped records are the
	// expected cost of latest-write-wins.
	wg.Add(1)
	go func() {
		defer wg.Done()

		var r record
		for tag := uint64(1); !stop.Load(); tag++ {
			for i := range r.words {
				r.words[i] = tag
			}

			if slot.TryPut(r) {
				produced.Add(1)
			} else {
				missed.Add(1)
			}
		}
	}()

	// Consumer: read through the scoped lock, copy out, verify.
	wg.Add(1)
	go func() {
		defer wg.Done()

		var r record
		last := uint64(0)
		lock := slot.Lock()

		for !stop.Load() {
			if !lock.TryLock() {
				pauses.Add(1)
				continue
			}

			view, _ := lock.View()
			r = *view
			lock.Unlock()

			tag := r.words[0]
			if tag <= last {
				logger.Error("tag delivered twice",
					zap.Uint64("tag", tag),
					zap.Uint64("previous", last))
				corrupt.Store(true)
				stop.Store(true)
				return
			}
			for i, w := range r.words {
				if w != tag {
					logger.Error("torn record",
						zap.Uint64("tag", tag),
						zap.Int("word", i),
						zap.Uint64("value", w))
					corrupt.Store(true)
					stop.Store(true)
					return
				}
			}

			last = tag
			consumed.Add(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	deadline := time.After(*duration)
	ticker := time.NewTicker(*report)
	defer ticker.Stop()

run:
	for !stop.Load() {
		select {
		case <-ticker.C:
			logger.Info("progress",
				zap.Uint64("produced", produced.Load()),
				zap.Uint64("missed_puts", missed.Load()),
				zap.Uint64("consumed", consumed.Load()),
				zap.Uint64("consumer_pauses", pauses.Load()))
		case <-sig:
			logger.Info("interrupted")
			break run
		case <-deadline:
			break run
		}
	}

	stop.Store(true)
	wg.Wait()

	st := slot.Stats()
	logger.Info("slot stats",
		zap.Uint64("put_attempts", st.PutAttempts),
		zap.Uint64("put_failed", st.PutFailed),
		zap.Uint64("overwrites", st.Overwrites),
		zap.Uint64("read_attempts", st.ReadAttempts),
		zap.Uint64("read_failed_empty", st.ReadFailedEmpty),
		zap.Uint64("read_failed_busy", st.ReadFailedBusy))

	if corrupt.Load() {
		logger.Error("exchange corrupted, see errors above")
		os.Exit(1)
	}
	logger.Info("clean run",
		zap.Uint64("produced", produced.Load()),
		zap.Uint64("consumed", consumed.Load()))
}
