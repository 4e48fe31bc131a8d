// Package rrgraph loads, models and writes FPGA routing-resource graphs.
//
// A routing-resource (RR) graph describes an FPGA's wiring fabric: nodes are
// wire segments and pins, edges are the programmable switches between them.
// This package reads the subset of the RR graph XML that inter-die thinning
// needs and writes the edited graph back out.
//
// # Reading
//
// [Load] streams a graph file with encoding/xml and keeps only what the
// thinning passes use:
//
//	<rr_graph>
//	  <grid>     <grid_loc x y layer .../>                      </grid>
//	  <rr_nodes> <node id type> <loc xlow ylow xhigh yhigh layer/>
//	                            <segment segment_id/> </node>   </rr_nodes>
//	  <rr_edges> <edge src_node sink_node switch_id/>           </rr_edges>
//	</rr_graph>
//
// Every other section (channels, switches, segments, block types) is skipped.
// Missing sections fail with MALFORMED_GRAPH, edges naming unknown nodes with
// DANGLING_REFERENCE, and channel nodes with a segment id other than 0 or 1
// with UNSUPPORTED_SEGMENT_CLASS.
//
// # Writing
//
// A graph returned by [Load] remembers the byte span of every <edge> element
// in its source file. [Write] copies the source through and leaves out the
// spans of removed edges ("splice mode"), so everything the loader skipped
// survives untouched and an unedited graph is reproduced byte-for-byte. Graphs
// built in memory with [New] or decoded with [Read] have no source and are
// written from the model instead ("encode mode"). Neither mode adds an XML
// declaration.
//
// [WriteFile] writes through a temporary file in the destination directory
// and renames it into place, so an interrupted job never leaves a file under
// its final name.
//
// # Naming
//
// [OutputName] and [MuxOutputName] implement the output naming contract
// consumed by downstream tooling:
//
//	rr_graph_<circuit>_<edge_pct>.xml
//	rr_graph_<circuit>_<edge_pct>_mux_<mux_pct>.xml
package rrgraph
