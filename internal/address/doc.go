/*
Package address provides the structured representation of task addresses.

The textual form is `[:][project:...:]task`. Segments are separated by `:`
(a `/` is accepted on input and normalized to `:`). A leading `:` anchors the
address at the root project, so `:run` is the root project's own `run` task
and `:lib:compile` is the `compile` task of the `lib` child of the root.
Without the leading `:` an address is relative to some base project chosen by
the caller; a bare `compile` is the short form.

This package enforces the identifier schema and centralizes all formatting
and parsing logic.
*/
package address
