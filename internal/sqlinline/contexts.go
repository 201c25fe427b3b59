package sqlinline

const QSelectUserContext = `--sql 03f3181c-5be9-4b4a-9337-7999f8de6ddd
select content
from user_contexts
where user_key = $1::text
order by updated_at desc
limit 1;
`

const QUpsertUserContext = `--sql 688bdeaa-c3b6-47e1-a21c-13dd0d49763e
insert into user_contexts(user_key, content, updated_at)
values ($1::text, $2::text, now())
on conflict (user_key) do update set
  content = excluded.content,
  updated_at = now();
`
