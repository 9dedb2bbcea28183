package core

import "sync"

// SphereCollider is a spherical collider placed in a Scene.
type SphereCollider struct {
	Center Vec3
	Radius float64
	Layer  Layer
	Body   *AttachedBody
	Node   *Node
}

// Scene is a minimal analytic world made of sphere colliders. Hosts that
// own a real physics engine implement Raycaster themselves; Scene backs
// the simulator and tests.
type Scene struct {
	mu        sync.RWMutex
	colliders map[string]*SphereCollider
}

// NewScene constructs an empty scene.
func NewScene() *Scene {
	return &Scene{colliders: make(map[string]*SphereCollider)}
}

// Put adds or replaces the collider registered under id.
func (s *Scene) Put(id string, c SphereCollider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.colliders[id] = &cp
}

// Move updates a collider's centre. It returns false if id is unknown.
func (s *Scene) Move(id string, center Vec3) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colliders[id]
	if !ok {
		return false
	}
	c.Center = center
	return true
}

// Remove deletes a collider.
func (s *Scene) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.colliders, id)
}

// Raycast returns the nearest collider surface hit by ray within
// maxDistance. Colliders hit at the same distance resolve to the lowest id.
func (s *Scene) Raycast(ray Ray, maxDistance float64) (HitReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best   *SphereCollider
		bestID string
		bestD  float64
	)
	for id, c := range s.colliders {
		d, ok := intersectSphere(ray, c.Center, c.Radius)
		if !ok || d > maxDistance {
			continue
		}
		if best == nil || d < bestD || (d == bestD && id < bestID) {
			best, bestID, bestD = c, id, d
		}
	}
	if best == nil {
		return HitReport{}, false
	}
	return HitReport{
		Layer:    best.Layer,
		Body:     best.Body,
		Collider: best.Node,
		Point:    ray.At(bestD),
		Distance: bestD,
	}, true
}
