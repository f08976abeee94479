package logging

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"testing"

	"go.viam.com/test"
	"go.viam.com/utils"
)

func TestNetAppenderQueueOperations(t *testing.T) {
	t.Run("test addBatchToQueue", func(t *testing.T) {
		queueSize := 10
		nl := NetAppender{
			maxQueueSize: queueSize,
		}

		nl.addBatchToQueue(make([][]byte, queueSize-1))
		test.That(t, nl.queueSize(), test.ShouldEqual, queueSize-1)

		nl.addBatchToQueue(make([][]byte, 2))
		test.That(t, nl.queueSize(), test.ShouldEqual, queueSize)

		nl.addBatchToQueue(make([][]byte, queueSize+1))
		test.That(t, nl.queueSize(), test.ShouldEqual, queueSize)
	})

	t.Run("test addToQueue", func(t *testing.T) {
		queueSize := 2
		nl := NetAppender{
			maxQueueSize: queueSize,
		}

		nl.addToQueue([]byte("a"))
		test.That(t, nl.queueSize(), test.ShouldEqual, 1)

		nl.addToQueue([]byte("b"))
		test.That(t, nl.queueSize(), test.ShouldEqual, queueSize)

		nl.addToQueue([]byte("c"))
		test.That(t, nl.queueSize(), test.ShouldEqual, queueSize)
	})
}

// lineCollector accepts console connections and records the announced client name followed by
// each received log line.
type lineCollector struct {
	listener net.Listener

	mu    sync.Mutex
	names []string
	lines []string

	done chan struct{}
}

func makeLineCollector(t *testing.T) *lineCollector {
	listener, err := net.Listen("tcp", "localhost:0")
	test.That(t, err, test.ShouldBeNil)

	lc := &lineCollector{listener: listener, done: make(chan struct{})}
	go func() {
		defer close(lc.done)
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			scanner := bufio.NewScanner(conn)
			if !scanner.Scan() {
				continue
			}
			lc.mu.Lock()
			lc.names = append(lc.names, scanner.Text())
			lc.mu.Unlock()
			for scanner.Scan() {
				lc.mu.Lock()
				lc.lines = append(lc.lines, scanner.Text())
				lc.mu.Unlock()
			}
		}
	}()
	return lc
}

func (lc *lineCollector) stop() {
	utils.UncheckedError(lc.listener.Close())
	<-lc.done
}

func (lc *lineCollector) snapshot() ([]string, []string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return append([]string{}, lc.names...), append([]string{}, lc.lines...)
}

func TestNetAppenderWrites(t *testing.T) {
	collector := makeLineCollector(t)

	netAppender, err := NewNetAppender(&ConsoleConfig{
		Address: collector.listener.Addr().String(),
		Name:    "zonefilter-test",
	})
	test.That(t, err, test.ShouldBeNil)

	logger := NewBlankLogger("test logger")
	logger.AddAppender(netAppender)

	for i := 0; i < writeBatchSize+1; i++ {
		logger.Info("Some-info")
	}

	test.That(t, netAppender.Sync(), test.ShouldBeNil)
	netAppender.Close()
	collector.stop()

	names, lines := collector.snapshot()
	test.That(t, names, test.ShouldResemble, []string{"zonefilter-test"})
	test.That(t, lines, test.ShouldHaveLength, writeBatchSize+1)

	// Each line is a self-contained json log entry.
	var decoded map[string]any
	test.That(t, json.Unmarshal([]byte(lines[0]), &decoded), test.ShouldBeNil)
	test.That(t, decoded["msg"], test.ShouldEqual, "Some-info")
	test.That(t, decoded["level"], test.ShouldEqual, "info")
	test.That(t, decoded["logger"], test.ShouldEqual, "test logger")
}

func TestNetAppenderFailureAndRetry(t *testing.T) {
	// Reserve an address and close the listener so the first writes have nothing to talk to.
	listener, err := net.Listen("tcp", "localhost:0")
	test.That(t, err, test.ShouldBeNil)
	addr := listener.Addr().String()
	test.That(t, listener.Close(), test.ShouldBeNil)

	// Build the appender without its background worker so syncs only happen when driven
	// explicitly; the interleaving stays deterministic.
	nl := &NetAppender{
		remoteWriter: &remoteLogWriterTCP{address: addr, name: "retry-test"},
		maxQueueSize: defaultMaxQueueSize,
	}

	logger := NewBlankLogger("test logger")
	logger.AddAppender(nl)

	numLogs := 11
	for i := 0; i < numLogs; i++ {
		logger.Info("Some-info")
	}

	// With no collector up, syncing fails and the batch is re-enqueued.
	test.That(t, nl.Sync(), test.ShouldNotBeNil)
	test.That(t, nl.queueSize(), test.ShouldEqual, numLogs)

	// Once a collector appears at the same address, a later sync drains the queue.
	listener, err = net.Listen("tcp", addr)
	test.That(t, err, test.ShouldBeNil)
	collector := &lineCollector{listener: listener, done: make(chan struct{})}
	go func() {
		defer close(collector.done)
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			collector.mu.Lock()
			collector.lines = append(collector.lines, scanner.Text())
			collector.mu.Unlock()
		}
	}()

	test.That(t, nl.Sync(), test.ShouldBeNil)
	test.That(t, nl.queueSize(), test.ShouldEqual, 0)
	nl.remoteWriter.close()
	collector.stop()

	_, lines := collector.snapshot()
	// The first line on the wire is the announced client name.
	test.That(t, lines, test.ShouldHaveLength, numLogs+1)
	test.That(t, lines[0], test.ShouldEqual, "retry-test")
}
