// Package fleet maintains the in-memory registry of decoder models,
// vehicles and consists, and drives them through a Commander.
//
// The registry is the single source of truth for what is on the track:
// which vehicle answers to which DCC address, what speed it was last
// told, and which decoder functions are switched on. It validates
// addresses, resolves function names through the vehicle's model, and
// delegates the actual track commands to the Commander interface so it
// never touches the transport directly.
//
// Vehicles reference their model by name. The reference is weak: a
// vehicle whose model was never declared (or was deleted) still moves,
// it just has no controllable devices.
//
// Storage uses tombstone slots. Deleting an entry clears it in place;
// the next declaration reuses the first cleared slot before growing the
// backing slice. Iteration therefore always skips entries with an empty
// ID or name.
//
// All exported methods are safe for concurrent use.
package fleet
