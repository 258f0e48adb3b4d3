// Package retry decides what a service failure allows: rotate keys, back
// off and try again, or give up. Classification is pure phrase matching so
// the service client can drive an explicit retry state machine.
package retry
