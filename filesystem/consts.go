package filesystem

import "syscall"

type SysAttrType = uint32

const (
	DirAttr  SysAttrType = syscall.S_IFDIR
	FileAttr SysAttrType = syscall.S_IFREG
)

// Separator is the single namespace separator; names never contain it
const Separator = "/"

// preferred size for fs ops
const blockSize = 4096
