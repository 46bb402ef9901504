package rtc

import (
	"sync"

	"github.com/spundev/webrtcshare/internal/signaling"
)

// candidateBuffer holds ICE candidates that arrive before the remote
// description is set. Candidates can land concurrently with the flush that
// follows remote-description application, so Add and Flush share one mutex:
// Add re-checks the remote-description condition under the lock, and Flush
// holds the lock for its entire drain. A candidate therefore either joins
// the queue before the drain starts or is applied directly after it ends;
// it can never be stranded in a cleared queue.
type candidateBuffer struct {
	mu      sync.Mutex
	pending []signaling.Candidate
}

// Add applies the candidate directly when the engine already has a remote
// description, otherwise queues it in arrival order.
func (b *candidateBuffer) Add(engine Engine, cand signaling.Candidate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !engine.HasRemoteDescription() {
		b.pending = append(b.pending, cand)
		return nil
	}
	return engine.AddICECandidate(cand)
}

// Flush applies the queued candidates to the engine in FIFO order and
// clears the queue. Call it exactly once per successful remote-description
// application, before returning control to the negotiation driver. A
// candidate the engine rejects does not stop the drain; the first error is
// returned after all candidates were attempted.
func (b *candidateBuffer) Flush(engine Engine) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for _, cand := range b.pending {
		if err := engine.AddICECandidate(cand); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.pending = nil
	return firstErr
}

// Len reports the number of queued candidates.
func (b *candidateBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
