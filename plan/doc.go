package plan

// The following documentation is used to describe how a query is been
// mapped from SQL to the execution plan consumed by the exec package.
//
// After the plan been generated, it will contain 4 phases, which will be
// executed sequentially by the interpreter,
//
// 1) Tables
//    For each source inside of the from clause, one TableDescriptor is
//    generated. A source is either a table function call, a VALUES literal
//    table or a view reference. Function sources record their settled
//    arguments, a TABLE(...) argument becomes a nested *Plan* or a view
//    name. A LATERAL source is re-evaluated once per row of the join of
//    the sources on its left, its scalar arguments may reference their
//    columns.
//
//    The join of multiple sources is an unconditional nested loop, ie a
//    cross product, the where clause does the filtering. Can be pictured
//    as,
//
//    for r0 in tbl0 {
//      for r1 in tbl1 {
//        ...
//          for rn in tbln {
//            if !filter(r0, r1, ..., rn) { continue }
//            emit(r0, r1, ..., rn)
//          }
//      }
//    }
//
// 2) Filter
//    The where clause, evaluated against the joined row tuple.
//
// 3) Sort
//    The order by clause. The interpreter materializes everything anyway
//    so sorting is a plain in-memory sort over the evaluated keys.
//
// 4) Output
//    This phase tries to generate output based on projection. The output
//    is a *fused* phase since it takes care of several things, distinct
//    dedups the generated rows, and limit caps how many entries are kept.
//    The output row shape is inferred here as well, field names come from
//    aliases or the referenced columns, field types from a best effort
//    static inference.
