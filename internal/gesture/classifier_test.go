package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/mudra/internal/landmark"
)

func pair(left landmark.HandLandmarks, lx float64, right landmark.HandLandmarks, rx float64) Roles {
	l := left.MoveWristTo(lx, 0.8)
	r := right.MoveWristTo(rx, 0.8)
	return Roles{Left: &l, Right: &r}
}

func TestClassifier_Pairs(t *testing.T) {
	c := NewDefaultClassifier(DefaultConfig())

	tests := []struct {
		name  string
		roles Roles
		want  Label
	}{
		{"fist and palm is please", pair(landmark.FistLandmarks(), 0.3, landmark.OpenPalmLandmarks(), 0.7), Please},
		{"palms apart is hello", pair(landmark.OpenPalmLandmarks(), 0.375, landmark.OpenPalmLandmarks(), 0.625), Hello},
		{"palms close is sorry", pair(landmark.OpenPalmLandmarks(), 0.45, landmark.OpenPalmLandmarks(), 0.55), Sorry},
		{"two fists is thank you", pair(landmark.FistLandmarks(), 0.3, landmark.FistLandmarks(), 0.7), ThankYou},
		{"two thumbs up is excellent", pair(landmark.ThumbsUpLandmarks(), 0.3, landmark.ThumbsUpLandmarks(), 0.7), Excellent},
		{"two index fingers is together", pair(landmark.PointingUpLandmarks(), 0.3, landmark.PointingUpLandmarks(), 0.7), Together},
		{"unknown side is two hands", pair(landmark.SidewaysThumbLandmarks(), 0.3, landmark.OpenPalmLandmarks(), 0.7), TwoHands},
		{"unpaired signs is two hands", pair(landmark.TwoLandmarks(), 0.3, landmark.ThreeLandmarks(), 0.7), TwoHands},
		{"palm and fist reversed is two hands", pair(landmark.OpenPalmLandmarks(), 0.3, landmark.FistLandmarks(), 0.7), TwoHands},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.roles))
		})
	}
}

func TestClassifier_PairDistance(t *testing.T) {
	c := NewDefaultClassifier(DefaultConfig())
	roles := pair(landmark.OpenPalmLandmarks(), 0.3, landmark.OpenPalmLandmarks(), 0.7)

	label, distance := c.ClassifyPair(roles.Left, roles.Right)
	assert.Equal(t, Hello, label)
	assert.InDelta(t, 0.4, distance, 1e-9)
}

func TestClassifier_ProximityIsConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HandProximity = 0.5
	c := NewDefaultClassifier(cfg)

	roles := pair(landmark.OpenPalmLandmarks(), 0.3, landmark.OpenPalmLandmarks(), 0.7)
	assert.Equal(t, Sorry, c.Classify(roles))
}

func TestClassifier_SingleAndEmpty(t *testing.T) {
	c := NewDefaultClassifier(DefaultConfig())
	fist := landmark.FistLandmarks()

	assert.Equal(t, Fist, c.Classify(Roles{Left: &fist}))
	assert.Equal(t, Fist, c.Classify(Roles{Right: &fist}))
	assert.Equal(t, None, c.Classify(Roles{}))
}

func TestWristDistance(t *testing.T) {
	a := landmark.FistLandmarks().MoveWristTo(0.1, 0.1)
	b := landmark.FistLandmarks().MoveWristTo(0.4, 0.5)

	assert.InDelta(t, 0.5, WristDistance(&a, &b), 1e-9)
	assert.InDelta(t, 0.5, WristDistance(&b, &a), 1e-9)
}
