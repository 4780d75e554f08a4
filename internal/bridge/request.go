package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/flight-bridge/fcb/internal/dji"
)

// missionRequest carries one mission start through load, upload and start.
// Vendor callbacks hold a pointer to the request they belong to, so a late
// callback for an abandoned request can be recognised and dropped.
type missionRequest struct {
	id       string
	mission  *dji.WaypointMission
	operator dji.MissionOperator

	result chan error
	once   sync.Once

	// retried is set when the single upload retry has been issued.
	retried atomic.Bool
	// started is set when StartMission has been issued.
	started atomic.Bool
}

func newMissionRequest(m *dji.WaypointMission, op dji.MissionOperator) *missionRequest {
	return &missionRequest{
		id:       uuid.NewString(),
		mission:  m,
		operator: op,
		result:   make(chan error, 1),
	}
}

// settle delivers the request's only result. It reports false if the
// request had already been settled.
func (r *missionRequest) settle(err error) bool {
	settled := false
	r.once.Do(func() {
		r.result <- err
		settled = true
	})
	return settled
}
