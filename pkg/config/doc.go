// Package config loads the aggregate-linker JSON configuration file
// and derives the immutable source specifications the engine consumes.
//
// The on-disk schema matches the original tool:
//
//	{
//	    "ROOT_FOLDER": "/tmp/SymlinkUnifiedRoot",
//	    "SOURCE_FOLDERS": [
//	        {"PATH": "/tmp/SymlinkSource_A/*.txt", "FINAL_EXCLUDE": "*temp*.txt"}
//	    ],
//	    "GLOBAL_EXCLUDE_PATTERNS": ["*Bank1*", ".*"],
//	    "HEAL_IDLE_TIMEOUT": 5
//	}
//
// Each PATH glob is split at its first wildcard component: the deepest
// wildcard-free directory becomes the watched base directory and the
// remainder the glob suffix. A PATH without wildcards addresses a
// literal directory whose direct children all qualify.
package config
