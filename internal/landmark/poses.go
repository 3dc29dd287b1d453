package landmark

// Pose fixtures. All hands are upright right hands with the wrist at (0.5, 0.8);
// move them with MoveWristTo. Extended fingers have the tip well above the PIP
// joint, curled fingers have the tip folded below it.

type thumbPose int

const (
	thumbTucked thumbPose = iota
	thumbSide
	thumbUp
	thumbDown
	thumbFlat
)

var fingerMCPs = [4]Point3D{
	{X: 0.55, Y: 0.68},
	{X: 0.50, Y: 0.66},
	{X: 0.45, Y: 0.68},
	{X: 0.40, Y: 0.70},
}

var thumbPoses = map[thumbPose][4]Point3D{
	thumbTucked: {{X: 0.54, Y: 0.76}, {X: 0.57, Y: 0.72}, {X: 0.575, Y: 0.68}, {X: 0.56, Y: 0.66}},
	thumbSide:   {{X: 0.55, Y: 0.75}, {X: 0.60, Y: 0.70}, {X: 0.66, Y: 0.66}, {X: 0.72, Y: 0.62}},
	thumbUp:     {{X: 0.55, Y: 0.75}, {X: 0.58, Y: 0.65}, {X: 0.62, Y: 0.55}, {X: 0.65, Y: 0.45}},
	thumbDown:   {{X: 0.55, Y: 0.78}, {X: 0.58, Y: 0.82}, {X: 0.62, Y: 0.90}, {X: 0.65, Y: 0.98}},
	thumbFlat:   {{X: 0.55, Y: 0.70}, {X: 0.58, Y: 0.65}, {X: 0.66, Y: 0.65}, {X: 0.74, Y: 0.655}},
}

func poseLandmarks(thumb thumbPose, index, middle, ring, pinky bool) HandLandmarks {
	hand := HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: HandRight,
		Score:      0.95,
	}
	hand.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}
	thumbPoints := thumbPoses[thumb]
	copy(hand.Points[ThumbCMC:ThumbTip+1], thumbPoints[:])

	open := [4]bool{index, middle, ring, pinky}
	for f, mcp := range fingerMCPs {
		base := IndexMCP + f*4
		hand.Points[base] = mcp
		if open[f] {
			hand.Points[base+1] = Point3D{X: mcp.X, Y: mcp.Y - 0.12}
			hand.Points[base+2] = Point3D{X: mcp.X, Y: mcp.Y - 0.22}
			hand.Points[base+3] = Point3D{X: mcp.X, Y: mcp.Y - 0.30}
		} else {
			hand.Points[base+1] = Point3D{X: mcp.X, Y: mcp.Y - 0.03, Z: -0.05}
			hand.Points[base+2] = Point3D{X: mcp.X - 0.02, Y: mcp.Y, Z: -0.04}
			hand.Points[base+3] = Point3D{X: mcp.X - 0.03, Y: mcp.Y + 0.03, Z: -0.02}
		}
	}
	return hand
}

// OpenPalmLandmarks returns an open palm: every finger extended, thumb out to the side.
func OpenPalmLandmarks() HandLandmarks { return poseLandmarks(thumbSide, true, true, true, true) }

// FistLandmarks returns a closed fist with the thumb tucked.
func FistLandmarks() HandLandmarks { return poseLandmarks(thumbTucked, false, false, false, false) }

// PointingUpLandmarks returns a straight index finger with everything else folded.
func PointingUpLandmarks() HandLandmarks {
	return poseLandmarks(thumbTucked, true, false, false, false)
}

// OneLandmarks returns an index finger with the thumb out ("L" shape), which
// counts as one but not as pointing up.
func OneLandmarks() HandLandmarks { return poseLandmarks(thumbSide, true, false, false, false) }

// TwoLandmarks returns index and middle extended.
func TwoLandmarks() HandLandmarks { return poseLandmarks(thumbTucked, true, true, false, false) }

// ThreeLandmarks returns index, middle and ring extended.
func ThreeLandmarks() HandLandmarks { return poseLandmarks(thumbTucked, true, true, true, false) }

// FourLandmarks returns thumb, index, middle and ring extended with the pinky folded.
func FourLandmarks() HandLandmarks { return poseLandmarks(thumbSide, true, true, true, false) }

// ThumbsUpLandmarks returns a thumbs up: thumb raised, other fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	return poseLandmarks(thumbUp, false, false, false, false)
}

// ThumbsDownLandmarks returns a thumbs down: thumb lowered, other fingers curled.
func ThumbsDownLandmarks() HandLandmarks {
	return poseLandmarks(thumbDown, false, false, false, false)
}

// SidewaysThumbLandmarks returns a thumb-only pose held almost horizontal,
// which is neither up nor down.
func SidewaysThumbLandmarks() HandLandmarks {
	return poseLandmarks(thumbFlat, false, false, false, false)
}
