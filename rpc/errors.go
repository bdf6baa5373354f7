package rpc

import (
	"errors"
	"net/http"

	"github.com/zibert/ACDM/core"
	coreerrors "github.com/zibert/ACDM/core/errors"
)

// Application error codes, one per module error kind.
const (
	codeUnauthorizedCall   = -32010
	codeInvalidArgument    = -32011
	codePreconditionFailed = -32012
	codeNotFound           = -32013
	codeProofRejected      = -32014
)

func errorCode(err error) (int, int) {
	switch coreerrors.KindOf(err) {
	case coreerrors.ErrUnauthorized:
		return http.StatusForbidden, codeUnauthorizedCall
	case coreerrors.ErrInvalidArgument:
		return http.StatusBadRequest, codeInvalidArgument
	case coreerrors.ErrPreconditionFailed:
		return http.StatusConflict, codePreconditionFailed
	case coreerrors.ErrNotFound:
		return http.StatusNotFound, codeNotFound
	case coreerrors.ErrProofRejected:
		return http.StatusForbidden, codeProofRejected
	}
	if errors.Is(err, core.ErrNotInitialised) || errors.Is(err, core.ErrFaucetDisabled) {
		return http.StatusConflict, codePreconditionFailed
	}
	return http.StatusInternalServerError, codeServerError
}

// writeNodeError reports a failed node call. Module errors keep their message;
// anything else is a server error.
func writeNodeError(w http.ResponseWriter, req *RPCRequest, err error) {
	status, code := errorCode(err)
	writeError(w, status, req.ID, code, err.Error(), nil)
}
