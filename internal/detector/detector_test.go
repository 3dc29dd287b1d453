package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/landmark"
)

func TestDecodeResponse(t *testing.T) {
	t.Run("passes points through untouched", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0}],"handedness":"Left","score":0.8}]}` + "\n")

		hands, err := decodeResponse(line)
		require.NoError(t, err)
		require.Len(t, hands, 1)
		assert.Len(t, hands[0].Points, 1)
		assert.Equal(t, landmark.HandLeft, hands[0].Handedness)
	})

	t.Run("helper error is surfaced", func(t *testing.T) {
		_, err := decodeResponse([]byte(`{"error":"model not loaded"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("garbage fails to parse", func(t *testing.T) {
		_, err := decodeResponse([]byte("not json"))
		assert.Error(t, err)
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)
		require.NoError(t, err)
		assert.Nil(t, hands)
	})

	t.Run("returns queued frames before fixed hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]landmark.HandLandmarks{landmark.OpenPalmLandmarks()})
		mock.Queue([]landmark.HandLandmarks{landmark.FistLandmarks()}, nil)

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		require.Len(t, first, 1)
		assert.Nil(t, second)
		require.Len(t, third, 1)
		assert.Equal(t, 3, mock.Calls())
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)
		assert.ErrorIs(t, err, expectedErr)
		assert.Nil(t, hands)
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		assert.NoError(t, NewMockDetector().Close())
	})
}
