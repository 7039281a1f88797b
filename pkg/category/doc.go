// Package category implements the category-theoretic graph constructions
// that drive sesqui-pushout rewriting.
//
// Five operators do all of the mathematical work of the engine:
//
//   - [Pullback] intersects two graphs over a shared codomain
//   - [Pushout] glues two graphs along a shared domain
//   - [PullbackComplement] subtracts what a rule deletes and materializes
//     its clones (the final-pullback-complement of sesqui-pushout rewriting)
//   - [PushoutFromRelation] glues two graphs along a binary relation
//     instead of a homomorphism
//   - [ImageFactorization] splits a homomorphism into its canonical
//     epi-mono factorization
//
// Every rewrite of a single graph is one PullbackComplement followed by
// one Pushout; every propagation step through a hierarchy is one or two
// further invocations of the same operators. The operators validate their
// domain/codomain preconditions and fail with CATEGORY_* errors when the
// inputs do not form the required shape.
package category
