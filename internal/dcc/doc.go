// Package dcc encodes NMRA DCC baseline instruction bytes.
//
// The package is pure computation: it turns speeds, function masks and
// accessory selections into the single instruction bytes that the track
// waveform generator expects, and nothing else. Transport, retries and
// decoder state all live elsewhere.
//
// Supported encodings:
//   - 28-step speed and direction instructions (0x40 base)
//   - normal and emergency stop (including the broadcast stop address 0)
//   - grouped function instructions F1-F12 plus the headlight (0x80,
//     0xb0, 0xa0 bases)
//   - basic accessory decoder packets (turnouts, signals)
//
// All functions are safe for concurrent use.
package dcc
