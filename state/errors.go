package state

import (
	"errors"
	"fmt"

	"github.com/wfunc/traitorserver/models"
)

// Code is a stable, machine readable rejection reason.
type Code string

const (
	CodeWrongPhase       Code = "WRONG_PHASE"
	CodePlayerNotFound   Code = "PLAYER_NOT_FOUND"
	CodePlayerDead       Code = "PLAYER_DEAD"
	CodeWrongRole        Code = "WRONG_ROLE"
	CodeNotHost          Code = "NOT_HOST"
	CodeInvalidTarget    Code = "INVALID_TARGET"
	CodeDuplicateAccount Code = "DUPLICATE_ACCOUNT"
	CodeRoomFull         Code = "ROOM_FULL"
	CodeInvalidChoice    Code = "INVALID_CHOICE"
	CodeNoAccused        Code = "NO_ACCUSED"
	CodeRolesNotAssigned Code = "ROLES_NOT_ASSIGNED"
	CodeNotEnoughPlayers Code = "NOT_ENOUGH_PLAYERS"
)

// Rejection is returned when an action is not allowed against the current
// snapshot. A rejected action never produces a new snapshot.
type Rejection struct {
	Code    Code
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Reject builds a Rejection with a formatted message.
func Reject(code Code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsCode reports whether err is a Rejection with the given code.
func IsCode(err error, code Code) bool {
	r, ok := AsRejection(err)
	return ok && r.Code == code
}

func wrongPhase(phase models.Phase, action string) *Rejection {
	return Reject(CodeWrongPhase, "cannot %s during %s", action, phase)
}
