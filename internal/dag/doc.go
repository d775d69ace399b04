// Package dag orders the node declarations of a sweep file by the references
// between them, so that every declaration is built after the declarations it
// refers to. Cycles between declarations are reported here, before any node
// object exists.
package dag
