package store

import (
	"errors"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneJob struct {
	err error
}

func (j doneJob) Results() (*firestore.WriteResult, error) {
	if j.err != nil {
		return nil, j.err
	}
	return &firestore.WriteResult{}, nil
}

func TestJobErrors(t *testing.T) {
	assert.NoError(t, jobErrors(nil))
	assert.NoError(t, jobErrors([]writeJob{doneJob{}, doneJob{}}))

	denied := errors.New("permission denied")
	aborted := errors.New("aborted")
	err := jobErrors([]writeJob{doneJob{}, doneJob{err: denied}, doneJob{}, doneJob{err: aborted}})
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.ErrorIs(t, err, aborted)
	assert.Contains(t, err.Error(), "2 of 4 deletes failed")
}
