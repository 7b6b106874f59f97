// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package recommend turns a reader's loan history into a small batch of catalog
books.

# Pipeline

  - Parser maps a call number such as "TP312/123" to a (main class, subclass)
    pair using a declarative rule table built once at startup.
  - Summarize folds a loan history into per-class and per-subclass frequencies
    plus the set of call numbers the reader has already borrowed.
  - Selector walks the subclasses from most to least borrowed, drawing one
    unseen book per subclass, and always keeps at least one slot for a random
    discovery pick.

Every batch is persisted through the Catalog and the persisted history is
pruned to the configured retention window, so consecutive batches for the same
reader never repeat a call number inside that window.

# Failure Handling

Selector.Recommend never returns an error. Catalog failures are logged and
degrade to fewer (possibly zero) books.

# Thread Safety

Parser is immutable after construction. Selector guards its random source with
a mutex and is safe for concurrent use.
*/
package recommend
