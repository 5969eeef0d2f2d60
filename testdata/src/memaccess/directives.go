package memaccess

func ignoredAbove(v int64) {
	//memaccess:ignore
	counter = v
}

func ignoredSameLine(v int64) {
	counter = v //memaccess:ignore
}

func unusedIgnore() int {
	//memaccess:ignore // want "unused memaccess:ignore directive"
	return 0
}

//memaccess:noinstrument
func quiet(p *int32) {
	*p = 1
}

// quietClosure is excluded together with the closure it returns.
//
//memaccess:noinstrument
func quietClosure(p *int32) func() {
	return func() { *p = 2 }
}
