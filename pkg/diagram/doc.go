// Package diagram defines the canonical diagram document and the rules for
// converting it to and from live editor state.
//
// The document is the wire and storage format shared with the persistence
// backend. Its JSON shape is a compatibility contract and must not change:
//
//	{
//	  "nodeDataArray": [
//	    {"id": "n1", "parentId": null, "type": "task",
//	     "data": {"role": "PM", "task": "Plan", "model": "", "status": "", "comment": ""},
//	     "position": {"x": 0, "y": 0}}
//	  ],
//	  "linkDataArray": [
//	    {"id": "e1", "source": "n1", "target": "n2", "label": ""}
//	  ]
//	}
//
// # Live state
//
// Editors hold [LiveNode] values: a [Node] plus transient UI state
// (selection, hover). [ToDocument] keeps only the persistable part.
// [FromDocument] produces layout input with positions cleared;
// [FromDocumentKeepPositions] keeps them for reloads that should not
// reflow the user's arrangement.
//
// # Records
//
// A stored [Diagram] wraps a document with the [Params] that produced it.
// Backends may emit numeric ids, so [ID] accepts both JSON numbers and
// strings.
package diagram
