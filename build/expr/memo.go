// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expr

// Evaluator is the numerical evaluator built for a node in a context.
// Implementations are provided by the interpreter.
type Evaluator interface {
	// Superset returns the sparsity superset computed by the evaluator.
	Superset() *Superset
}

// Memo caches what the analysis and evaluation passes computed for a node
// in an evaluation context. It is populated lazily and owned by its node.
type Memo struct {
	// Classes maps the key of multiple derivatives to their class.
	Classes map[string]Class
	// Nonzeros maps a maximum order to the nonzero derivatives up to that order.
	Nonzeros map[int]*Nonzeros
	// Superset of the node. Nil until computed.
	Superset *Superset
	// Evaluator of the node. Nil until built.
	Evaluator Evaluator
}

// Memo returns the memo of a node for a context, creating it if necessary.
func (a *Arena) Memo(id ID, ctx EvalContext) *Memo {
	n := a.nodes[id]
	if n.memos == nil {
		n.memos = make(map[ContextKey]*Memo)
	}
	memo, ok := n.memos[ctx.Key()]
	if !ok {
		memo = &Memo{
			Classes:  make(map[string]Class),
			Nonzeros: make(map[int]*Nonzeros),
		}
		n.memos[ctx.Key()] = memo
	}
	return memo
}

// HasMemo returns true if a memo exists for a node in a context.
func (a *Arena) HasMemo(id ID, ctx EvalContext) bool {
	_, ok := a.nodes[id].memos[ctx.Key()]
	return ok
}

// ResetMemo drops the memo of a node for a context.
func (a *Arena) ResetMemo(id ID, ctx EvalContext) {
	delete(a.nodes[id].memos, ctx.Key())
}

// ResetMemos drops all the memos of all the nodes.
func (a *Arena) ResetMemos() {
	for _, n := range a.nodes {
		n.memos = nil
	}
}
