// dlk is the Dataset Loader Kit. It contains small adapters which know how to
// locate, download and parse particular on-disk dataset layouts into a uniform
// representation, along with the plumbing those adapters share.
//
// A dataset load moves through three stages.
//
// 1. Download
//
//    Every load begins with a set of file references. They may be local
//    paths, HTTP URLs, or S3 objects, and they may point at archives which
//    need to be expanded before anything can be read. A dlk.DownloadManager
//    turns each reference into a local path which is ready for reading. The
//    adapters never talk to the network themselves; they are handed a
//    DownloadManager and ask it for paths. The download package contains a
//    caching implementation, and dlk.LocalFiles is a pass-through for data
//    which is already on disk.
//
// 2. Split generation
//
//    An adapter's configuration names the files which make up the dataset,
//    possibly partitioned into named splits (train, validation, test). The
//    adapter resolves that configuration into a list of dlk.SplitGenerator,
//    each holding the local paths for one split.
//
// 3. Generation
//
//    For each split the adapter produces a lazy, finite sequence of keyed
//    output. The csv package emits one columnar table (an Apache Arrow table)
//    per input file. The polyglot package emits one record per sentence of a
//    token/label corpus. Both sequences are pulled one item at a time by the
//    caller and end with io.EOF. Nothing is produced until it is asked for,
//    and any error ends the sequence.
//
// The export package contains writers for the generated output, and cmd wires
// all of it together into the dlk command line tool.
package dlk
