// Package pidcc drives the pidcc waveform-generator worker.
//
// pidcc is a small privileged program that turns DCC packets into the
// bipolar track signal on two GPIO pins. This package owns its whole
// life: launching it through the process supervisor, feeding it
// newline-terminated commands on stdin, decoding the readiness sigils
// it prints on stdout, and relaunching it at a constant interval when
// it dies.
//
// The wire protocol is line oriented:
//
//	-> pin <A> <B>          configure the GPIO pair
//	-> send <addr> <byte>   queue one DCC instruction
//	<- #                    idle, queue empty
//	<- %                    busy transmitting
//	<- *                    queue full, refuse sends
//	<- !...                 error report, logged only
//	<- $...                 debug chatter, logged only
//
// A busy or queue-full report expires after a fixed deadline: a worker
// that stops talking does not wedge the service, the link falls back to
// idle and lets traffic flow again.
//
// Without a configured GPIO pin pair the worker is never launched and
// the link runs dry: commands are validated, encoded and recorded in
// the flight recorder, but nothing is transmitted.
package pidcc
