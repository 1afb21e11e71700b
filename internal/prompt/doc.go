// Package prompt watches the backend's output stream for interactive
// prompt markers.
//
// Whether a run of output is an approval dialog, a reply composer, or
// just ordinary text is a heuristic over OSC sequences and literal
// text, and backends change their prompt rendering over time. The
// marker set is therefore configuration data, not code: a Detector
// holds a replaceable table of Markers and emits Opened and Resolved
// events as markers appear in the stream. The engine hides its overlay
// rows while any suppressing marker is open so the backend's prompt
// stays fully visible.
package prompt
