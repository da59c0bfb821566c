package queue

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"
)

// TestBasicOperations tests basic push and consume functionality
func TestBasicOperations(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	// Push 10 items
	for i := 0; i < 10; i++ {
		if !q.Push(&i) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	// Consume 10 items
	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if *val != i {
				t.Errorf("Expected %d, got %v", i, *val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	// Make sure queue is empty
	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", val)
	case <-time.After(10 * time.Millisecond):
		// Expected timeout, queue is empty
	}
}

// TestConcurrentProducers verifies the queue works correctly with multiple producers
func TestConcurrentProducers(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	const numProducers = 10
	const itemsPerProducer = 1000
	totalItems := numProducers * itemsPerProducer

	// Use a map to track received items
	var mu sync.Mutex
	received := make(map[string]bool)

	// Start a consumer goroutine
	done := make(chan struct{})
	receivedCount := 0

	go func() {
		defer close(done)

		for receivedCount < totalItems {
			select {
			case val := <-q.Recv():

				if val == nil {
					t.Errorf("Received nil item")
					return
				}

				mu.Lock()
				key := fmt.Sprintf("%v", *val)
				if received[key] {
					t.Errorf("Duplicate item received: %v", *val)
				}
				received[key] = true
				receivedCount++
				mu.Unlock()
			case <-time.After(2 * time.Second):
				t.Errorf("Timeout waiting for items, received %d of %d", receivedCount, totalItems)
				return
			}
		}
	}()

	// Start producers
	var wg sync.WaitGroup
	wg.Add(numProducers)

	for p := 0; p < numProducers; p++ {
		go func(producerID int) {
			defer wg.Done()

			base := producerID * itemsPerProducer
			for i := 0; i < itemsPerProducer; i++ {
				val := base + i
				if !q.Push(&val) {
					t.Errorf("Producer %d failed to push item %d", producerID, i)
				}

				// Add some randomness to producer timing
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}

	// Wait for all producers to finish
	wg.Wait()

	// Wait for consumer to process all items
	select {
	case <-done:
		// Consumer finished
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout waiting for consumer to finish")
	}

	// Verify we got all expected items
	if receivedCount != totalItems {
		t.Errorf("Expected %d items, got %d", totalItems, receivedCount)
	}
}

// TestCloseQueue verifies closing behavior
func TestCloseQueue(t *testing.T) {
	q := NewMPSC[int]()

	// Push some items
	for i := 0; i < 5; i++ {
		q.Push(&i)
	}

	// Close the queue
	q.Close()

	// Verify we can't push after closing
	val := 100
	if q.Push(&val) {
		t.Error("Should not be able to push after queue is closed")
	}

	// Verify we can still read existing items
	for i := 0; i < 5; i++ {
		select {
		case val := <-q.Recv():
			if *val != i {
				t.Errorf("Expected %d, got %v", i, *val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d after close", i)
		}
	}

	// Verify the channel is closed after reading all items
	if _, ok := <-q.Recv(); ok {
		t.Error("Channel should be closed but is still open")
	}
}

// TestSingleProducerOrdering verifies strict FIFO with a single producer.
// The frame pipelines rely on this: all frames of one session are pushed
// by goroutines serialized through one mutex.
func TestSingleProducerOrdering(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	const itemCount = 10000
	go func() {
		for i := 0; i < itemCount; i++ {
			q.Push(&i)
		}
	}()

	prev := -1
	for i := 0; i < itemCount; i++ {
		select {
		case val := <-q.Recv():
			if *val != prev+1 {
				t.Fatalf("Expected %d, got %d", prev+1, *val)
			}
			prev = *val
		case <-time.After(1 * time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}
}

// BenchmarkSingleProducer benchmarks the queue with a single producer
func BenchmarkSingleProducer(b *testing.B) {
	q := NewMPSC[int]()
	defer q.Close()

	// Start consumer
	go func() {
		for range q.Recv() {
			// Just consume
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(&i)
	}
}

// BenchmarkMultiProducer benchmarks the queue with multiple producers
func BenchmarkMultiProducer(b *testing.B) {
	q := NewMPSC[int]()
	defer q.Close()

	// Start consumer
	go func() {
		for range q.Recv() {
			// Just consume
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(&i)
			i++
		}
	})
}
