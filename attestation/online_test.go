package attestation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnlineCellWaitWithoutDispatch(t *testing.T) {
	var cell onlineCell
	_, err := cell.wait(context.Background())
	require.Error(t, err)
}

func TestOnlineCellSynthesize(t *testing.T) {
	var cell onlineCell
	cell.synthesize(ErrCardVerificationFailed)

	res, err := cell.wait(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.err, ErrCardVerificationFailed)
}

func TestOnlineCellDispatchSuccess(t *testing.T) {
	var cell onlineCell
	verifier := &fakeVerifier{record: &VerificationRecord{CardID: "CB71", Issuer: "acme"}}

	cell.dispatch(context.Background(), verifier, "CB71", []byte{0x04})

	res, err := cell.wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.err)
	assert.Equal(t, "acme", res.record.Issuer)
}

// A second dispatch supersedes the first: the slow first attempt's late
// completion is dropped and never reaches the waiter.
func TestOnlineCellSupersede(t *testing.T) {
	var cell onlineCell

	block := make(chan struct{})
	verifier := &fakeVerifier{
		block:   block,
		results: []error{ErrCardVerificationFailed, nil},
		record:  &VerificationRecord{Issuer: "fresh"},
	}

	cell.dispatch(context.Background(), verifier, "CB71", []byte{0x04})
	cell.dispatch(context.Background(), verifier, "CB71", []byte{0x04})

	res, err := cell.wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.err)
	assert.Equal(t, "fresh", res.record.Issuer)

	// release the superseded attempt; its failure must be dropped, not
	// delivered to a later waiter
	close(block)
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cell.wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOnlineCellWaitContextCancelled(t *testing.T) {
	var cell onlineCell

	block := make(chan struct{})
	defer close(block)
	verifier := &fakeVerifier{block: block}

	cell.dispatch(context.Background(), verifier, "CB71", []byte{0x04})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cell.wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOnlineCellTeardownDropsLateResult(t *testing.T) {
	var cell onlineCell

	block := make(chan struct{})
	verifier := &fakeVerifier{block: block, results: []error{errors.New("late")}}

	cell.dispatch(context.Background(), verifier, "CB71", []byte{0x04})
	cell.teardown()
	close(block)
	time.Sleep(10 * time.Millisecond)

	_, err := cell.wait(context.Background())
	require.Error(t, err, "teardown must invalidate the slot")
}
