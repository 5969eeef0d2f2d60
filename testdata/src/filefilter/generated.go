// Code generated by hand for the file filter test. DO NOT EDIT.

package filefilter

func generated(v int64) {
	last = v
}
