package cvapi

import "github.com/resumecraft/cv-upload-client/internal/infrastructure/resilience"

const (
	opInitiate  = "cv.initiate"
	opStatus    = "cv.status"
	opCancel    = "cv.cancel"
	opReconcile = "cv.reconcile"
	opList      = "cv.list"
)

// defaultPolicies is the full retry contract of the client in one
// place:
//
//   - initiate is never retried: partially sent upload bytes must not be
//     resent without an explicit user action
//   - status and list absorb transient network failures, since the
//     server-side job keeps running while the user's connection blips
//   - cancel is fire-and-forget and already idempotent server-side
//   - reconcile failures are soft and degraded by the caller, so a
//     retry loop would only delay the degraded answer
func defaultPolicies() map[string]resilience.Policy {
	return map[string]resilience.Policy{
		opInitiate:  resilience.NoRetry(),
		opStatus:    resilience.TransientRetry(),
		opCancel:    resilience.NoRetry(),
		opReconcile: resilience.NoRetry(),
		opList:      resilience.TransientRetry(),
	}
}
