// Package computer models the actions a computer-use assistant can request,
// decodes them from tool call arguments and executes them.
//
// SimulatedExecutor never touches a real display; it returns the observation
// each action would have produced so the surrounding loop can be exercised
// end to end.
package computer
