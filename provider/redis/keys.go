package redis

import "github.com/jims1001/activityfeed/provider"

// Key layout mirrors the teacher's cluster-safe key conventions in
// service/storage/online.go (userIndexKey/sessionKey): every key is
// prefixed by namespace and feed name so one Redis instance can host many
// feeds without collision.
//
//	<namespace>|<feed_name>|data|<user_id>   ZSET: member=event value, score=at
//	<namespace>|<feed_name>|meta|<user_id>   STRING: last_read watermark
//	<namespace>|<feed_name>|lock|<user_id>   reserved; no op writes it, Wipe deletes it

func dataKey(ks provider.Keyspace, userID string) string {
	return ks.Namespace + "|" + ks.FeedName + "|data|" + userID
}

func metaKey(ks provider.Keyspace, userID string) string {
	return ks.Namespace + "|" + ks.FeedName + "|meta|" + userID
}

func lockKey(ks provider.Keyspace, userID string) string {
	return ks.Namespace + "|" + ks.FeedName + "|lock|" + userID
}
