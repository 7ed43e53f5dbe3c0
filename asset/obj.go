// Package asset loads the model and texture the viewer draws.
package asset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Vertex struct {
	Pos      [3]float32
	Color    [3]float32
	TexCoord [2]float32
}

var white = [3]float32{1, 1, 1}

// LoadOBJ reads a Wavefront OBJ file. See ParseOBJ.
func LoadOBJ(path string) ([]Vertex, []uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load model")
	}
	defer f.Close()

	vertices, indices, err := ParseOBJ(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load model %s", path)
	}
	return vertices, indices, nil
}

// ParseOBJ reads positions, texture coordinates and faces. Polygons are
// fanned into triangles, V is flipped for top-left image origin and
// identical vertices share one index. Other statements are ignored.
func ParseOBJ(r io.Reader) ([]Vertex, []uint32, error) {
	var (
		positions [][3]float32
		texCoords [][2]float32
		vertices  []Vertex
		indices   []uint32
	)
	unique := map[Vertex]uint32{}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d", line)
			}
			positions = append(positions, [3]float32{v[0], v[1], v[2]})

		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d", line)
			}
			texCoords = append(texCoords, [2]float32{v[0], v[1]})

		case "f":
			if len(fields) < 4 {
				return nil, nil, errors.Errorf("line %d: face with %d vertices", line, len(fields)-1)
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				vertex, err := resolve(ref, positions, texCoords)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "line %d", line)
				}
				index, ok := unique[vertex]
				if !ok {
					index = uint32(len(vertices))
					unique[vertex] = index
					vertices = append(vertices, vertex)
				}
				face = append(face, index)
			}
			for t := 1; t+1 < len(face); t++ {
				indices = append(indices, face[0], face[t], face[t+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "read model")
	}
	if len(indices) == 0 {
		return nil, nil, errors.New("model has no faces")
	}

	return vertices, indices, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, errors.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for t := 0; t < n; t++ {
		v, err := strconv.ParseFloat(fields[t], 32)
		if err != nil {
			return nil, errors.Wrapf(err, "component %d", t)
		}
		out[t] = float32(v)
	}
	return out, nil
}

// objIndex resolves a 1-based, possibly negative, OBJ reference.
func objIndex(field string, count int) (int, error) {
	i, err := strconv.Atoi(field)
	if err != nil {
		return 0, errors.Wrapf(err, "bad index %q", field)
	}
	if i < 0 {
		i = count + i
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, errors.Errorf("index %s out of range", field)
	}
	return i, nil
}

func resolve(ref string, positions [][3]float32, texCoords [][2]float32) (Vertex, error) {
	parts := strings.Split(ref, "/")

	p, err := objIndex(parts[0], len(positions))
	if err != nil {
		return Vertex{}, errors.Wrap(err, "position")
	}
	vertex := Vertex{
		Pos:   positions[p],
		Color: white,
	}

	if len(parts) > 1 && parts[1] != "" {
		tc, err := objIndex(parts[1], len(texCoords))
		if err != nil {
			return Vertex{}, errors.Wrap(err, "texture coordinate")
		}
		vertex.TexCoord = [2]float32{texCoords[tc][0], 1 - texCoords[tc][1]}
	}
	return vertex, nil
}
