// Package solast projects the artifact oracle's raw AST node tree into
// the flat FunctionDecl records the upgrade-auth, initializer, and
// access-control analyzers consume. The tree is walked exactly once;
// downstream consumers never re-walk raw nodes.
package solast

import (
	"strings"

	"github.com/VectorBits/upgradeguard/internal/model"
	"github.com/VectorBits/upgradeguard/internal/oracle"
)

// senderIdentifiers are the conventional spellings of "message sender" and
// its common wrapper names that a function body might reference.
var senderIdentifiers = []string{"msg.sender", "_msgSender", "msgSender"}

// disableInitializersNames are the conventional names of the helper a
// constructor calls to lock out the initializer path.
var disableInitializersNames = []string{"_disableInitializers"}

// Project walks one contract-definition node's function children into a
// ContractAst. root is expected to be a ContractDefinition node (or any
// node whose Nodes slice holds FunctionDefinition children); name is used
// verbatim as ContractAst.Name.
func Project(name string, root *oracle.Node) model.ContractAst {
	out := model.ContractAst{Name: name}
	if root == nil {
		return out
	}
	for i := range root.Nodes {
		n := &root.Nodes[i]
		if n.NodeType != "FunctionDefinition" {
			continue
		}
		out.Functions = append(out.Functions, projectFunction(n))
	}
	return out
}

func projectFunction(n *oracle.Node) model.FunctionDecl {
	decl := model.FunctionDecl{
		Name:       n.Name,
		Kind:       funcKind(n),
		Visibility: visibility(n.Visibility),
		BodyCalls:  map[string]struct{}{},
	}
	for _, m := range n.Modifiers {
		if m.ModifierName.Name != "" {
			decl.Modifiers = append(decl.Modifiers, m.ModifierName.Name)
		}
	}
	if n.Body != nil {
		decl.HasBody = true
		decl.BodyEmpty = len(n.Body.Statements) == 0
		walkBody(n.Body, &decl)
	} else {
		decl.BodyEmpty = true
	}
	return decl
}

func funcKind(n *oracle.Node) model.FuncKind {
	switch strings.ToLower(n.Kind) {
	case "constructor":
		return model.KindConstructor
	case "fallback":
		return model.KindFallback
	case "receive":
		return model.KindReceive
	default:
		return model.KindRegular
	}
}

func visibility(v string) model.Visibility {
	switch strings.ToLower(v) {
	case "external":
		return model.External
	case "internal":
		return model.Internal
	case "private":
		return model.Private
	default:
		return model.Public
	}
}

// walkBody recurses through a function body recording the three signals
// the analyzers need: a sender-identity reference, a storage assignment,
// and the set of called function names. It degrades to string inspection
// of the "Name"/"NodeType" fields only where the compact AST carries no
// deeper structure (solc's compact-json dump does not expose resolved
// l-value storage vs. memory classification at this layer, so an
// Assignment node's presence is treated as a storage write — a
// deliberately conservative approximation).
func walkBody(n *oracle.Node, decl *model.FunctionDecl) {
	if n == nil {
		return
	}
	if n.NodeType == "Assignment" {
		decl.BodyHasStorageAssignment = true
	}
	if n.NodeType == "MemberAccess" || n.NodeType == "Identifier" {
		if containsSenderIdentifier(n.Name) {
			decl.BodyReferencesSender = true
		}
	}
	if n.NodeType == "FunctionCall" && n.Expression != nil {
		name := calleeName(n.Expression)
		if name != "" {
			decl.BodyCalls[name] = struct{}{}
			if containsSenderIdentifier(name) {
				decl.BodyReferencesSender = true
			}
		}
	}
	for i := range n.Statements {
		walkBody(&n.Statements[i], decl)
	}
	for i := range n.Nodes {
		walkBody(&n.Nodes[i], decl)
	}
	for i := range n.Arguments {
		walkBody(&n.Arguments[i], decl)
	}
	if n.Expression != nil {
		walkBody(n.Expression, decl)
	}
	if n.Body != nil {
		walkBody(n.Body, decl)
	}
}

func calleeName(expr *oracle.Node) string {
	if expr.Name != "" {
		return expr.Name
	}
	if expr.Expression != nil {
		return calleeName(expr.Expression)
	}
	return ""
}

func containsSenderIdentifier(name string) bool {
	for _, s := range senderIdentifiers {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// HasDisableInitializersCall reports whether a FunctionDecl's BodyCalls set
// contains the conventional disable-initializers helper.
func HasDisableInitializersCall(decl model.FunctionDecl) bool {
	for _, want := range disableInitializersNames {
		if _, ok := decl.BodyCalls[want]; ok {
			return true
		}
	}
	return false
}

// The access-control signal shared by the upgrade-auth and
// access-control analyzers: at least one modifier whose lowercased name
// contains one of a fixed keyword set, or a direct sender-identity
// reference in the body. The keyword set is a heuristic; it may be
// broadened but must not be narrowed, or custom guards stop registering.
var accessControlKeywords = []string{"only", "auth", "authorized", "owner", "admin", "role", "guard"}

func HasAccessControlSignal(decl model.FunctionDecl) bool {
	for _, m := range decl.Modifiers {
		lower := strings.ToLower(m)
		for _, kw := range accessControlKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return decl.BodyReferencesSender
}

// HasModifierKeyword reports whether any modifier name matches the
// access-control keyword set, independent of the sender-reference signal
// (used where a rule distinguishes "modifier-based guard" from "sender
// check", e.g. ACL-007).
func HasModifierKeyword(decl model.FunctionDecl) bool {
	for _, m := range decl.Modifiers {
		lower := strings.ToLower(m)
		for _, kw := range accessControlKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// HasModifierPrefixed reports whether any modifier name starts with the
// given prefix (case-sensitive, matching Solidity's own case sensitivity
// for identifiers), used for the onlyRole prefix check (ACL-002).
func HasModifierPrefixed(decl model.FunctionDecl, prefix string) bool {
	for _, m := range decl.Modifiers {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// HasModifier reports an exact modifier-name match.
func HasModifier(decl model.FunctionDecl, name string) bool {
	for _, m := range decl.Modifiers {
		if m == name {
			return true
		}
	}
	return false
}
