// Package scene builds and serializes the .fo3d scene descriptors that wrap a
// point cloud for the 3D viewer: a scene root, a perspective camera, and the
// geometry nodes hanging off the root.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedAsset = errors.New("unsupported point cloud asset")
	ErrUnknownNodeType  = errors.New("unknown scene node type")
)

// Up-axis conventions accepted by the viewer camera.
const (
	UpX    = "X"
	UpY    = "Y"
	UpZ    = "Z"
	UpNegX = "-X"
	UpNegY = "-Y"
	UpNegZ = "-Z"
)

const (
	typeScene             = "Scene"
	typePerspectiveCamera = "PerspectiveCamera"
	typePlyMesh           = "PlyMesh"
	typePointCloud        = "PointCloud"
	typePointCloudMat     = "PointCloudMaterial"
	typeAmbientLight      = "AmbientLight"

	defaultNodeName = "mesh"
)

// Vec3 is a position or scale triple.
type Vec3 [3]float64

// Quaternion is an x, y, z, w rotation.
type Quaternion [4]float64

// Transform is the placement shared by every node.
type Transform struct {
	Position   Vec3       `json:"position"`
	Quaternion Quaternion `json:"quaternion"`
	Scale      Vec3       `json:"scale"`
}

func identity() Transform {
	return Transform{Quaternion: Quaternion{0, 0, 0, 1}, Scale: Vec3{1, 1, 1}}
}

// Node is anything that can hang off the scene root.
type Node interface {
	NodeType() string
}

// PerspectiveCamera is the default viewpoint of the scene.
type PerspectiveCamera struct {
	Type     string  `json:"_type"`
	Position *Vec3   `json:"position"`
	LookAt   *Vec3   `json:"look_at"`
	Up       string  `json:"up"`
	FOV      float64 `json:"fov"`
	Aspect   *int    `json:"aspect"`
	Near     float64 `json:"near"`
	Far      float64 `json:"far"`
}

// NewPerspectiveCamera returns the viewer's default camera with the given up axis.
func NewPerspectiveCamera(up string) (*PerspectiveCamera, error) {
	switch up {
	case UpX, UpY, UpZ, UpNegX, UpNegY, UpNegZ:
	default:
		return nil, fmt.Errorf("camera up %q: must be one of X, Y, Z, -X, -Y, -Z", up)
	}
	return &PerspectiveCamera{Type: typePerspectiveCamera, Up: up, FOV: 50, Near: 0.1, Far: 2000}, nil
}

// PointCloudMaterial controls how points are shaded.
type PointCloudMaterial struct {
	Type                string  `json:"_type"`
	ShadingMode         string  `json:"shading_mode"`
	CustomColor         string  `json:"custom_color"`
	PointSize           float64 `json:"point_size"`
	AttenuateByDistance bool    `json:"attenuate_by_distance"`
	Opacity             float64 `json:"opacity"`
}

func defaultPointMaterial() *PointCloudMaterial {
	return &PointCloudMaterial{
		Type:        typePointCloudMat,
		ShadingMode: "height",
		CustomColor: "#ffffff",
		PointSize:   1,
		Opacity:     1,
	}
}

// PlyMesh references a .ply asset. With IsPointCloud set the viewer renders
// its vertices as points and ignores faces.
type PlyMesh struct {
	Type    string `json:"_type"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Transform
	PlyPath         string              `json:"ply_path"`
	IsPointCloud    bool                `json:"is_point_cloud"`
	CenterGeometry  bool                `json:"center_geometry"`
	DefaultMaterial *PointCloudMaterial `json:"default_material"`
	Children        []Node              `json:"children"`
}

func (*PlyMesh) NodeType() string { return typePlyMesh }

// NewPlyMesh returns a visible PLY node at the origin.
func NewPlyMesh(name, plyPath string, isPointCloud, centerGeometry bool) *PlyMesh {
	m := &PlyMesh{
		Type:           typePlyMesh,
		Name:           name,
		Visible:        true,
		Transform:      identity(),
		PlyPath:        plyPath,
		IsPointCloud:   isPointCloud,
		CenterGeometry: centerGeometry,
		Children:       []Node{},
	}
	if isPointCloud {
		m.DefaultMaterial = defaultPointMaterial()
	}
	return m
}

// PointCloud references a .pcd asset.
type PointCloud struct {
	Type    string `json:"_type"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Transform
	PcdPath         string              `json:"pcd_path"`
	CenterGeometry  bool                `json:"center_geometry"`
	DefaultMaterial *PointCloudMaterial `json:"default_material"`
	Children        []Node              `json:"children"`
}

func (*PointCloud) NodeType() string { return typePointCloud }

// NewPointCloud returns a visible PCD node at the origin.
func NewPointCloud(name, pcdPath string, centerGeometry bool) *PointCloud {
	return &PointCloud{
		Type:            typePointCloud,
		Name:            name,
		Visible:         true,
		Transform:       identity(),
		PcdPath:         pcdPath,
		CenterGeometry:  centerGeometry,
		DefaultMaterial: defaultPointMaterial(),
		Children:        []Node{},
	}
}

// Light is a scene light.
type Light struct {
	Type      string  `json:"_type"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Intensity float64 `json:"intensity"`
}

// Scene is the root of a .fo3d file.
type Scene struct {
	Type    string `json:"_type"`
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Transform
	Camera     *PerspectiveCamera `json:"camera"`
	Lights     []Light            `json:"lights"`
	Background *string            `json:"background"`
	Children   []Node             `json:"children"`
}

// New returns an empty scene with a Y-up camera and one ambient light.
func New() *Scene {
	cam, _ := NewPerspectiveCamera(UpY)
	return &Scene{
		Type:      typeScene,
		UUID:      uuid.NewString(),
		Visible:   true,
		Transform: identity(),
		Camera:    cam,
		Lights:    []Light{{Type: typeAmbientLight, Name: "ambient", Color: "#ffffff", Intensity: 0.9}},
		Children:  []Node{},
	}
}

// Add appends nodes to the scene root.
func (s *Scene) Add(nodes ...Node) {
	s.Children = append(s.Children, nodes...)
}

// ForPointCloud builds the scene used for every dataset sample: one
// point-cloud node named "mesh" referencing pointCloudPath, centered, seen
// by a camera whose up axis is up. The asset path is stored relative to the
// directory of scenePath so the pair can be moved together.
func ForPointCloud(pointCloudPath, scenePath, up string) (*Scene, error) {
	cam, err := NewPerspectiveCamera(up)
	if err != nil {
		return nil, err
	}
	asset, err := relativeAsset(pointCloudPath, scenePath)
	if err != nil {
		return nil, err
	}

	s := New()
	s.Camera = cam
	switch strings.ToLower(filepath.Ext(pointCloudPath)) {
	case ".ply":
		s.Add(NewPlyMesh(defaultNodeName, asset, true, true))
	case ".pcd":
		s.Add(NewPointCloud(defaultNodeName, asset, true))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, filepath.Base(pointCloudPath))
	}
	return s, nil
}

func relativeAsset(assetPath, scenePath string) (string, error) {
	absAsset, err := filepath.Abs(assetPath)
	if err != nil {
		return "", err
	}
	absScene, err := filepath.Abs(scenePath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(filepath.Dir(absScene), absAsset)
	if err != nil {
		return absAsset, nil
	}
	return filepath.ToSlash(rel), nil
}

// Write serializes the scene to path, replacing any existing file.
func (s *Scene) Write(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return nil
}

// Read loads a scene written by Write.
func Read(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", path, err)
	}
	return &s, nil
}

// UnmarshalJSON resolves children by their _type tag.
func (s *Scene) UnmarshalJSON(data []byte) error {
	type plain Scene
	var raw struct {
		plain
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Scene(raw.plain)
	s.Children = make([]Node, 0, len(raw.Children))
	for _, child := range raw.Children {
		node, err := decodeNode(child)
		if err != nil {
			return err
		}
		s.Children = append(s.Children, node)
	}
	return nil
}

func decodeNode(data json.RawMessage) (Node, error) {
	var tag struct {
		Type string `json:"_type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	var node Node
	switch tag.Type {
	case typePlyMesh:
		node = &PlyMesh{}
	case typePointCloud:
		node = &PointCloud{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, tag.Type)
	}
	// nested children of geometry nodes are not followed
	var stripped map[string]json.RawMessage
	if err := json.Unmarshal(data, &stripped); err != nil {
		return nil, err
	}
	delete(stripped, "children")
	body, err := json.Marshal(stripped)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, node); err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case *PlyMesh:
		n.Children = []Node{}
	case *PointCloud:
		n.Children = []Node{}
	}
	return node, nil
}
