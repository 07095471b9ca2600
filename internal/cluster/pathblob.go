package cluster

import (
	"encoding/json"
	"fmt"

	"github.com/udisondev/clustergraph/internal/tilestore"
)

// EncodePathBlob serializes waypoints to the UTF-8 JSON array format
// `[[x,y], ...]`.
func EncodePathBlob(waypoints []tilestore.Coord) ([]byte, error) {
	pairs := make([][2]int32, len(waypoints))
	for i, w := range waypoints {
		pairs[i] = [2]int32{w.X, w.Y}
	}
	blob, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("encoding path blob: %w", err)
	}
	return blob, nil
}

// DecodePathBlob parses the JSON waypoint array back into coordinates.
// plane is supplied by the caller since the blob format omits it.
func DecodePathBlob(blob []byte, plane int32) ([]tilestore.Coord, error) {
	var pairs [][2]int32
	if err := json.Unmarshal(blob, &pairs); err != nil {
		return nil, fmt.Errorf("decoding path blob: %w", err)
	}
	out := make([]tilestore.Coord, len(pairs))
	for i, p := range pairs {
		out[i] = tilestore.Coord{X: p[0], Y: p[1], Plane: plane}
	}
	return out, nil
}
