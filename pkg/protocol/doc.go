// Package protocol implements the line based ASCII wire grammar
// spoken over the radio link.
//
// Every line is terminated by '\n':
//
//	CMD:<KIND>:<VALUE>                 controller to vehicle
//	ACK:<KIND>:<VALUE>:<STATUS>        vehicle to controller
//	<timestamp>,<elapsed>,<v1>,...,<vN> vehicle to controller
//
// Decoding never fails: anything not understood decodes to *Malformed.
package protocol
