package logging

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"
)

const (
	defaultMaxQueueSize = 20000
	writeBatchSize      = 100

	writeTimeout = 5 * time.Second
)

// ConsoleConfig contains the necessary inputs to relay logs to a remote log console over TCP.
type ConsoleConfig struct {
	// Address is the host:port of the console collector.
	Address string `json:"address"`
	// Name labels this client's log stream on the collector. Defaults to the hostname.
	Name string `json:"name,omitempty"`
}

// NewNetAppender creates a NetAppender to relay log events to a remote console.
func NewNetAppender(config *ConsoleConfig) (*NetAppender, error) {
	return newNetAppender(config, clock.New())
}

func newNetAppender(config *ConsoleConfig, c clock.Clock) (*NetAppender, error) {
	if config.Address == "" {
		return nil, errors.New("console address required")
	}
	name := config.Name
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, err
		}
		name = hostname
	}

	logWriter := &remoteLogWriterTCP{
		address: config.Address,
		name:    name,
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	nl := &NetAppender{
		cancelCtx:        cancelCtx,
		cancel:           cancel,
		remoteWriter:     logWriter,
		maxQueueSize:     defaultMaxQueueSize,
		clock:            c,
		loggerWithoutNet: NewLogger("netlogger"),
	}
	nl.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(nl.backgroundWorker, nl.activeBackgroundWorkers.Done)
	return nl, nil
}

// NetAppender relays log events to a remote console, one JSON object per line. Entries are queued
// and written in batches by a background worker so that logging never blocks on the network.
type NetAppender struct {
	remoteWriter *remoteLogWriterTCP

	toLogMutex   sync.Mutex
	toLog        [][]byte
	maxQueueSize int

	cancelCtx               context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
	clock                   clock.Clock

	// loggerWithoutNet reports relay failures. It must not itself log through
	// the net appender, which would loop.
	loggerWithoutNet Logger
}

func (nl *NetAppender) queueSize() int {
	nl.toLogMutex.Lock()
	defer nl.toLogMutex.Unlock()
	return len(nl.toLog)
}

// Close stops the appender after a best effort, up to ten seconds, at
// draining the queue.
func (nl *NetAppender) Close() {
	for i := 0; i < 1000; i++ {
		// The background worker may have popped the final batch for a sync
		// that later fails and re-enqueues it. An empty queue here therefore
		// only means the last batch is in flight, not that it arrived.
		if nl.queueSize() == 0 {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}
	nl.cancel()
	nl.activeBackgroundWorkers.Wait()
	nl.remoteWriter.close()
}

var lineEncoder = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "level",
	NameKey:        "logger",
	CallerKey:      "caller",
	FunctionKey:    zapcore.OmitKey,
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.LowercaseLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
})

func (nl *NetAppender) Write(e zapcore.Entry, f []zapcore.Field) error {
	buf, err := lineEncoder.EncodeEntry(e, f)
	if err != nil {
		return err
	}
	line := make([]byte, buf.Len())
	copy(line, buf.Bytes())
	buf.Free()

	nl.addToQueue(line)

	if e.Level == zapcore.FatalLevel || e.Level == zapcore.DPanicLevel || e.Level == zapcore.PanicLevel {
		// The process is about to exit; flush synchronously.
		return nl.Sync()
	}

	return nil
}

func (nl *NetAppender) addToQueue(line []byte) {
	nl.toLogMutex.Lock()
	defer nl.toLogMutex.Unlock()

	if len(nl.toLog) >= nl.maxQueueSize {
		nl.toLog = nl.toLog[1:]
	}
	nl.toLog = append(nl.toLog, line)
}

func (nl *NetAppender) addBatchToQueue(batch [][]byte) {
	if len(batch) == 0 {
		return
	}

	nl.toLogMutex.Lock()
	defer nl.toLogMutex.Unlock()

	if len(batch) > nl.maxQueueSize {
		batch = batch[len(batch)-nl.maxQueueSize:]
	}

	if len(nl.toLog)+len(batch) >= nl.maxQueueSize {
		nl.toLog = nl.toLog[len(nl.toLog)+len(batch)-nl.maxQueueSize:]
	}

	nl.toLog = append(nl.toLog, batch...)
}

func (nl *NetAppender) backgroundWorker() {
	normalInterval := 100 * time.Millisecond
	abnormalInterval := 5 * time.Second
	interval := normalInterval
	for {
		cancelled := false
		if !nl.waitOrDone(interval) {
			cancelled = true
		}
		err := nl.Sync()
		if err != nil && !errors.Is(err, context.Canceled) {
			interval = abnormalInterval
			nl.loggerWithoutNet.Infof("error relaying logs to console: %s", err)
		} else {
			interval = normalInterval
		}
		if cancelled {
			return
		}
	}
}

// waitOrDone waits for the interval to elapse on the appender's clock and returns true, or returns
// false when the appender is being closed.
func (nl *NetAppender) waitOrDone(interval time.Duration) bool {
	timer := nl.clock.Timer(interval)
	defer timer.Stop()
	select {
	case <-nl.cancelCtx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Sync drains the queue to the remote writer, batch by batch.
func (nl *NetAppender) Sync() error {
	for {
		batch := func() [][]byte {
			nl.toLogMutex.Lock()
			defer nl.toLogMutex.Unlock()

			if len(nl.toLog) == 0 {
				return nil
			}

			batchSize := writeBatchSize
			if len(nl.toLog) < writeBatchSize {
				batchSize = len(nl.toLog)
			}

			ret := nl.toLog[:batchSize]
			nl.toLog = nl.toLog[batchSize:]

			return ret
		}()

		if len(batch) == 0 {
			return nil
		}

		err := nl.remoteWriter.write(batch)
		if err != nil {
			// A failed batch is re-enqueued at the back, so retried entries
			// can arrive after newer ones. The console sorts by timestamp.
			nl.addBatchToQueue(batch)
			return err
		}
	}
}

type remoteLogWriterTCP struct {
	address string
	name    string

	// `conn` is lazily initialized on first call to `write`. The `connMutex` serializes access to
	// ensure that only one caller dials.
	conn      net.Conn
	connMutex sync.Mutex
}

func (w *remoteLogWriterTCP) write(lines [][]byte) error {
	conn, err := w.getOrCreateConn()
	if err != nil {
		return err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		w.reset()
		return err
	}
	for _, line := range lines {
		if _, err := conn.Write(line); err != nil {
			// The console reads whole lines, so a partially written line is abandoned with its
			// connection and the batch is retried on a fresh one.
			w.reset()
			return err
		}
	}

	return nil
}

func (w *remoteLogWriterTCP) getOrCreateConn() (net.Conn, error) {
	w.connMutex.Lock()
	defer w.connMutex.Unlock()

	if w.conn != nil {
		return w.conn, nil
	}

	conn, err := net.DialTimeout("tcp", w.address, writeTimeout)
	if err != nil {
		return nil, err
	}

	// The first line of a connection announces who is logging; everything after is log entries.
	if _, err := fmt.Fprintf(conn, "%s\n", w.name); err != nil {
		utils.UncheckedError(conn.Close())
		return nil, err
	}

	w.conn = conn
	return conn, nil
}

func (w *remoteLogWriterTCP) reset() {
	w.connMutex.Lock()
	defer w.connMutex.Unlock()

	if w.conn != nil {
		utils.UncheckedError(w.conn.Close())
		w.conn = nil
	}
}

func (w *remoteLogWriterTCP) close() {
	w.connMutex.Lock()
	defer w.connMutex.Unlock()

	if w.conn != nil {
		utils.UncheckedErrorFunc(w.conn.Close)
		w.conn = nil
	}
}
