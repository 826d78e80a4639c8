// Package reducer implements the worker merge protocol that keeps the
// detector sound under work-stealing.
//
// The detector's state is logically one shadow stack per strand, but a steal
// splits a strand's execution across two workers. The thief starts from the
// identity view (a frameless stub) and the two views are recombined when the
// strands rejoin, by treating the right view as having executed in parallel
// with the left view's pending work. The protocol is the splittable,
// mergeable accumulator shape any fork/join runtime's reducer mechanism can
// host: an identity element plus a merge required to be consistent with the
// sequential join algorithm, so the set of reported races never depends on
// where the scheduler chose to split.
//
// The Registry provides the scoped registration of views with the host
// scheduler: a view is registered when its worker context is constructed and
// release is guaranteed on every exit path.
package reducer
