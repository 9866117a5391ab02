// Package service implements the relay core: event fan-out to bus topics,
// sharded filter routing, the request/reply responder and account statement
// reconstruction.
package service

// Broadcast topics published by the gateway.
const (
	TopicTransaction = "transaction"
	TopicTrunk       = "trunk"
	TopicTemplate    = "template"
)

// Inbound request topics served by the responder.
const (
	TopicNewTransaction     = "newTransaction"
	TopicNewBlock           = "newBlock"
	TopicBlockRequest       = "blockRequest"
	TopicTransactionRequest = "transactionRequest"
	TopicAccountRequest     = "accountRequest"
)

// filterTopicPrefix prefixes every shard topic; the full topic is the prefix
// plus the shard key.
const filterTopicPrefix = "filter"

// Shard key widths. Hash traffic shards on the last three characters,
// address traffic on the last two, giving subscribers a bounded keyspace to
// subscribe against.
const (
	hashShardLen    = 3
	addressShardLen = 2
)

// ShardKeyForHash returns the shard key for a transaction hash.
func ShardKeyForHash(hash string) string {
	if len(hash) <= hashShardLen {
		return hash
	}
	return hash[len(hash)-hashShardLen:]
}

// ShardKeyForAddress returns the shard key for an address.
func ShardKeyForAddress(address string) string {
	if len(address) <= addressShardLen {
		return address
	}
	return address[len(address)-addressShardLen:]
}
